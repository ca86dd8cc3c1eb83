// Package server runs the development memory store: an in-memory document
// store served over gRPC, guarded by session tokens, for local use of the
// journal client.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/logging"
	"github.com/dmitrijs2005/memojournal/internal/remote"
	"github.com/dmitrijs2005/memojournal/internal/server/auth"
	"github.com/dmitrijs2005/memojournal/internal/server/config"

	gs "github.com/dmitrijs2005/memojournal/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	records *remote.MemoryStore
}

func NewApp(c *config.Config) *App {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	return &App{config: c, logger: logger, records: remote.NewMemoryStore(time.Now)}
}

// IssueToken writes a session token for userID to w.
func (app *App) IssueToken(w io.Writer, userID string) error {
	tok, err := auth.GenerateToken(userID, []byte(app.config.SecretKey), app.config.TokenValidityDuration, time.Now())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}

// Run serves until ctx is done.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...")

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.records, app.config.SecretKey)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return err
	}
	return nil
}
