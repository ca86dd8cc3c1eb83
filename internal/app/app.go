// Package app assembles the journal client from its configuration: the
// cache database, session, document store, invalidation bus, sync status,
// upload pipeline and the mutation coordinator that ties them together.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dmitrijs2005/memojournal/internal/auth"
	"github.com/dmitrijs2005/memojournal/internal/cache"
	"github.com/dmitrijs2005/memojournal/internal/config"
	"github.com/dmitrijs2005/memojournal/internal/filex"
	"github.com/dmitrijs2005/memojournal/internal/invalidation"
	"github.com/dmitrijs2005/memojournal/internal/logging"
	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/dmitrijs2005/memojournal/internal/mutation"
	"github.com/dmitrijs2005/memojournal/internal/objectstore"
	"github.com/dmitrijs2005/memojournal/internal/remote"
	"github.com/dmitrijs2005/memojournal/internal/syncstatus"
	"github.com/dmitrijs2005/memojournal/internal/upload"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
)

const (
	databaseFile = "journal.db"
	signalsDir   = "signals"
)

// App owns every long-lived client component.
type App struct {
	Config  *config.Config
	Logger  logging.Logger
	DataDir string

	DB      *sql.DB
	Cache   cache.Store
	Session *auth.Provider
	Remote  *remote.GRPCStore
	Bus     *invalidation.Bus
	Status  *syncstatus.Controller
	Monitor *syncstatus.Monitor
	Images  *objectstore.S3Store // nil when no bucket is configured
	Uploads *upload.Pipeline     // nil when no bucket is configured
	Journal *mutation.Coordinator

	closers []func() error
}

type options struct {
	dial   []grpc.DialOption
	logger logging.Logger
	images objectstore.Store
}

type Option func(*options)

// WithDialOptions adds gRPC dial options, e.g. a bufconn dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dial = append(o.dial, opts...) }
}

// WithLogger overrides the logger derived from the config.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObjectStore replaces the S3 object store.
func WithObjectStore(s objectstore.Store) Option {
	return func(o *options) { o.images = s }
}

// New builds the client. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
		}
	}()

	if a.DataDir, err = filex.EnsureDir(cfg.DataDir); err != nil {
		return nil, err
	}

	a.Logger = o.logger
	if a.Logger == nil {
		if a.Logger, err = a.openLogger(); err != nil {
			return nil, err
		}
	}

	if err = a.openCache(ctx); err != nil {
		return nil, err
	}
	if err = a.openSession(ctx); err != nil {
		return nil, err
	}

	a.Remote, err = remote.NewGRPCStore(cfg.ServerEndpointAddr, a.Session, o.dial...)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.ServerEndpointAddr, err)
	}
	a.Remote.SetCallTimeout(cfg.CallTimeout)
	a.closers = append(a.closers, a.Remote.Close)

	dedupe, err := a.openBus()
	if err != nil {
		return nil, err
	}

	a.Status = syncstatus.New(syncstatus.WithResetDelays(cfg.SyncSuccessReset, cfg.SyncErrorReset))
	a.Monitor = syncstatus.NewMonitor(a.Remote, a.Status, cfg.OnlineCheckInterval, a.Logger.With("component", "monitor"))

	images, err := a.openObjectStore(ctx, o.images)
	if err != nil {
		return nil, err
	}

	a.Cache = cache.NewSQLiteStore(a.DB, cache.WithLogger(a.Logger.With("component", "cache")))
	deps := mutation.Deps{
		Remote: a.Remote,
		Cache:  a.Cache,
		Bus:    a.Bus,
		Status: a.Status,
		Dedupe: dedupe,
		Logger: a.Logger.With("component", "journal"),
	}
	if images != nil {
		a.Uploads = upload.New(images, upload.Config{
			Concurrency: cfg.Upload.Concurrency,
			Retry:       upload.Policy{MaxRetries: cfg.Upload.MaxRetries, BaseDelay: cfg.Upload.RetryBaseDelay},
			Compress:    upload.CompressOptions{MaxDimension: cfg.Upload.MaxDimension, Quality: cfg.Upload.Quality},
		}, a.Logger.With("component", "upload"))
		deps.Uploads = a.Uploads
		deps.Images = images
	}

	a.Journal = mutation.New(deps, mutation.Config{
		TTL:                   cfg.CacheTTL,
		SortOrder:             models.SortOrder(cfg.SortOrder),
		ImageFolder:           cfg.Upload.Folder,
		RefreshOnInvalidation: cfg.RefreshOnInvalidation,
	})
	a.closers = append(a.closers, func() error { a.Journal.Close(); return nil })

	unsubscribe := a.Session.Subscribe(func(ev auth.Event) {
		if ev.Kind == auth.SignedOut {
			a.Journal.DropViews()
		}
	})
	a.closers = append(a.closers, func() error { unsubscribe(); return nil })

	return a, nil
}

func (a *App) openLogger() (logging.Logger, error) {
	level, err := a.Config.SlogLevel()
	if err != nil {
		return nil, err
	}
	if a.Config.LogFile == "" {
		return logging.NewStderr(level), nil
	}

	path := a.Config.LogFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.DataDir, path)
	}
	l, closer := logging.NewRotatingFile(path, level)
	a.closers = append(a.closers, closer.Close)
	return l, nil
}

func (a *App) openCache(ctx context.Context) error {
	db, err := cache.Open(ctx, filepath.Join(a.DataDir, databaseFile))
	if err != nil {
		return err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)
	return nil
}

// openSession restores the persisted session. A token from the config
// replaces it.
func (a *App) openSession(ctx context.Context) error {
	a.Session = auth.NewProvider(auth.NewMetadataRepository(a.DB), auth.WithLogger(a.Logger.With("component", "auth")))

	if a.Config.SessionToken != "" {
		if _, err := a.Session.SignIn(ctx, a.Config.SessionToken); err != nil {
			return fmt.Errorf("sign in with configured token: %w", err)
		}
		return nil
	}
	return a.Session.Restore(ctx)
}

func (a *App) openBus() (*invalidation.Deduper, error) {
	signal, err := invalidation.NewFileSignal(filepath.Join(a.DataDir, signalsDir), a.Logger.With("component", "signal"))
	if err != nil {
		return nil, err
	}
	a.Bus = invalidation.New(invalidation.WithSignal(signal), invalidation.WithLogger(a.Logger.With("component", "bus")))
	if err := a.Bus.Start(); err != nil {
		return nil, fmt.Errorf("start invalidation bus: %w", err)
	}
	a.closers = append(a.closers, a.Bus.Close)

	dedupe, err := invalidation.NewDeduper(a.Config.DedupeWindow)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { dedupe.Close(); return nil })
	return dedupe, nil
}

func (a *App) openObjectStore(ctx context.Context, override objectstore.Store) (objectstore.Store, error) {
	if override != nil {
		return override, nil
	}
	if !a.Config.ObjectStoreConfigured() {
		a.Logger.Info(ctx, "no object store bucket configured; image uploads disabled")
		return nil, nil
	}

	s3cfg := a.Config.S3
	store, err := objectstore.NewS3Store(ctx, objectstore.S3Config{
		Region:        s3cfg.Region,
		AccessKey:     s3cfg.AccessKey,
		SecretKey:     s3cfg.SecretKey,
		Endpoint:      s3cfg.Endpoint,
		Bucket:        s3cfg.Bucket,
		PublicBaseURL: s3cfg.PublicBaseURL,
		UsePathStyle:  s3cfg.UsePathStyle,
	},
		objectstore.WithAttemptTimeout(a.Config.Upload.AttemptTimeout),
		objectstore.WithLogger(a.Logger.With("component", "objectstore")),
	)
	if err != nil {
		return nil, err
	}
	a.Images = store
	return store, nil
}

// UserID returns the signed-in user.
func (a *App) UserID() (string, error) {
	return a.Session.UserID()
}

// Close releases everything in reverse order of opening.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}

var _ io.Closer = (*App)(nil)
