package grpc

import (
	"context"

	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/dmitrijs2005/memojournal/internal/remote"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Records is the storage behind the server. *remote.MemoryStore satisfies it.
type Records interface {
	remote.DocumentStore
	Owner(id string) (string, bool)
}

// ownerGuard lets callers touch only their own records.
type ownerGuard struct {
	records Records
}

func (g ownerGuard) check(ctx context.Context, userID string) error {
	caller, ok := UserIDFromContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "no authenticated user")
	}
	if caller != userID {
		return status.Errorf(codes.PermissionDenied, "records of %s are not accessible to %s", userID, caller)
	}
	return nil
}

func (g ownerGuard) checkRecord(ctx context.Context, id string) error {
	owner, ok := g.records.Owner(id)
	if !ok {
		return nil // the store reports not found
	}
	return g.check(ctx, owner)
}

func (g ownerGuard) List(ctx context.Context, userID string) ([]models.Record, error) {
	if err := g.check(ctx, userID); err != nil {
		return nil, err
	}
	return g.records.List(ctx, userID)
}

func (g ownerGuard) Create(ctx context.Context, userID string, p models.CreatePayload) (models.Record, error) {
	if err := g.check(ctx, userID); err != nil {
		return models.Record{}, err
	}
	return g.records.Create(ctx, userID, p)
}

func (g ownerGuard) Update(ctx context.Context, id string, p models.Patch) error {
	if err := g.checkRecord(ctx, id); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return g.records.Update(ctx, id, p)
}

func (g ownerGuard) Delete(ctx context.Context, id string) error {
	if err := g.checkRecord(ctx, id); err != nil {
		return err
	}
	return g.records.Delete(ctx, id)
}

func (g ownerGuard) Ping(ctx context.Context) error {
	return g.records.Ping(ctx)
}
