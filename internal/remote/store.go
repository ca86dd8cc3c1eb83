// Package remote talks to the journal's document store.
//
// The wire contract is the gRPC service memojournal.v1.MemoryStore. Its
// messages are google.protobuf.Struct values carrying the JSON form of the
// models types, so client and server share one schema: the models package.
//
// Errors returned by the client are classified with the common sentinels:
// common.ErrTransient for conditions worth retrying later and
// common.ErrRejected for definitive refusals, optionally joined with
// common.ErrNotFound or common.ErrUnauthorized.
package remote

import (
	"context"

	"github.com/dmitrijs2005/memojournal/internal/models"
)

// DocumentStore is the remote source of truth for memory records.
type DocumentStore interface {
	List(ctx context.Context, userID string) ([]models.Record, error)
	// Create is idempotent per payload.IdempotencyKey.
	Create(ctx context.Context, userID string, payload models.CreatePayload) (models.Record, error)
	Update(ctx context.Context, id string, patch models.Patch) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
