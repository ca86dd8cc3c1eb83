package mutation

import (
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/cache"
	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/dmitrijs2005/memojournal/internal/invalidation"
	"github.com/dmitrijs2005/memojournal/internal/logging"
	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/dmitrijs2005/memojournal/internal/objectstore"
	"github.com/dmitrijs2005/memojournal/internal/remote"
	"github.com/dmitrijs2005/memojournal/internal/syncstatus"
	"github.com/dmitrijs2005/memojournal/internal/upload"
	"github.com/google/uuid"
)

// Publisher is the invalidation bus as seen by the coordinator.
type Publisher interface {
	PublishFrom(ctx context.Context, source, userID string) error
	Subscribe(h invalidation.Handler) func()
}

// StatusReporter receives sync progress. *syncstatus.Controller satisfies it.
type StatusReporter interface {
	StartSync()
	ReportSuccess()
	ReportFailure(msg string)
}

// BatchStarter runs image uploads. *upload.Pipeline satisfies it.
type BatchStarter interface {
	Start(ctx context.Context, files []upload.Source, opts upload.BatchOptions) *upload.Batch
}

// ImageDeleter removes media of deleted records. objectstore.Store satisfies it.
type ImageDeleter interface {
	Delete(ctx context.Context, publicID string) (objectstore.DeleteResult, error)
}

type Config struct {
	TTL         time.Duration
	SortOrder   models.SortOrder
	ImageFolder string
	// RefreshOnInvalidation refetches in the background after a foreign
	// invalidation instead of waiting for the next Load.
	RefreshOnInvalidation bool
}

func DefaultConfig() Config {
	return Config{TTL: cache.DefaultTTL, SortOrder: models.SortByNextOccurrence, ImageFolder: "memories"}
}

// Deps are the coordinator's collaborators. Remote and Cache are required.
type Deps struct {
	Remote  remote.DocumentStore
	Cache   cache.Store
	Bus     Publisher
	Status  StatusReporter
	Uploads BatchStarter
	Images  ImageDeleter
	Dedupe  *invalidation.Deduper
	Logger  logging.Logger
	Clock   func() time.Time
}

// Snapshot is a user's record list as of FetchedAt. Stale is set when the
// document store could not be reached and older data was returned instead.
type Snapshot struct {
	Records   []models.Memory
	FetchedAt time.Time
	Stale     bool
}

type Coordinator struct {
	id   string
	cfg  Config
	deps Deps

	unsubscribe func()
	bg          sync.WaitGroup

	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	mu       sync.Mutex
	view     *userView
	deleting map[string]models.Memory
	// pending holds this coordinator's creates that have not resolved yet.
	// Provisional records outside it are never shown or persisted.
	pending map[string]models.ProvisionalRecord
}

type userView struct {
	records   []models.Memory
	fetchedAt time.Time // zero when never fetched
}

func New(deps Deps, cfg Config) *Coordinator {
	if cfg.TTL <= 0 {
		cfg.TTL = cache.DefaultTTL
	}
	if cfg.SortOrder == "" {
		cfg.SortOrder = models.SortByNextOccurrence
	}
	if deps.Status == nil {
		deps.Status = syncstatus.New()
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	c := &Coordinator{
		id:    "coordinator-" + uuid.NewString(),
		cfg:   cfg,
		deps:  deps,
		users: make(map[string]*userState),
	}
	if deps.Bus != nil {
		c.unsubscribe = deps.Bus.Subscribe(c.HandleInvalidation)
	}
	return c
}

// ID is the source name the coordinator publishes invalidations under.
func (c *Coordinator) ID() string { return c.id }

// Close stops listening for invalidations and waits for background refreshes.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.bg.Wait()
}

func (c *Coordinator) state(userID string) *userState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.users[userID]
	if !ok {
		st = &userState{
			deleting: make(map[string]models.Memory),
			pending:  make(map[string]models.ProvisionalRecord),
		}
		c.users[userID] = st
	}
	return st
}

// Load returns the user's records: the in-memory view when fresh, else the
// persisted cache when fresh, else a remote list.
func (c *Coordinator) Load(ctx context.Context, userID string) (Snapshot, error) {
	st := c.state(userID)

	st.mu.Lock()
	v := c.viewLocked(ctx, userID, st)
	if c.fresh(v) {
		snap := c.snapshotLocked(v)
		st.mu.Unlock()
		return snap, nil
	}
	st.mu.Unlock()

	return c.fetch(ctx, userID)
}

// Refresh bypasses every cache and lists the user's records remotely.
func (c *Coordinator) Refresh(ctx context.Context, userID string) (Snapshot, error) {
	return c.fetch(ctx, userID)
}

// Entries returns the in-memory view without loading anything.
func (c *Coordinator) Entries(userID string) ([]models.Memory, bool) {
	st := c.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.view == nil {
		return nil, false
	}
	return cloneList(st.view.records), true
}

// DropViews forgets every in-memory view, for example on sign-out.
func (c *Coordinator) DropViews() {
	c.mu.Lock()
	states := make([]*userState, 0, len(c.users))
	for _, st := range c.users {
		states = append(states, st)
	}
	c.mu.Unlock()

	for _, st := range states {
		st.mu.Lock()
		st.view = nil
		st.mu.Unlock()
	}
}

func (c *Coordinator) fetch(ctx context.Context, userID string) (Snapshot, error) {
	records, err := c.deps.Remote.List(ctx, userID)

	st := c.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err != nil {
		v := c.viewLocked(ctx, userID, st)
		if v.fetchedAt.IsZero() {
			return Snapshot{}, fmt.Errorf("list memories: %w", err)
		}
		c.deps.Logger.Warn(ctx, "list failed, serving stale records", "user_id", userID, "fetched_at", v.fetchedAt, "error", err)
		snap := c.snapshotLocked(v)
		snap.Stale = true
		return snap, nil
	}

	now := c.deps.Clock()
	merged := make([]models.Memory, 0, len(records))
	fetched := make(map[string]bool, len(records))
	for _, r := range records {
		fetched[r.ID] = true
		if _, ok := st.deleting[r.ID]; ok {
			continue
		}
		merged = append(merged, r)
	}
	// Creates still in flight stay visible.
	for id, p := range st.pending {
		if !fetched[id] {
			merged = append(merged, p)
		}
	}
	merged = c.arrange(merged, now)

	st.view = &userView{records: merged, fetchedAt: now}
	if err := c.deps.Cache.Write(ctx, userID, merged); err != nil {
		c.deps.Logger.Warn(ctx, "cache write failed", "user_id", userID, "error", err)
	}
	return c.snapshotLocked(st.view), nil
}

// viewLocked returns the user's view, seeding it from the persisted cache
// (whatever its age) when there is none. Provisional records in the cache
// belong to other processes or to creates that never finished, so only
// this coordinator's pending creates survive seeding.
func (c *Coordinator) viewLocked(ctx context.Context, userID string, st *userState) *userView {
	if st.view != nil {
		return st.view
	}

	var (
		records   []models.Memory
		fetchedAt time.Time
	)
	if e, ok := c.deps.Cache.Read(ctx, userID); ok {
		fetchedAt = e.FetchedAt
		for _, m := range e.Records {
			if models.IsProvisional(m) {
				if _, mine := st.pending[models.IDOf(m)]; !mine {
					c.deps.Logger.Debug(ctx, "dropping unowned provisional record", "user_id", userID, "id", models.IDOf(m))
				}
				continue
			}
			records = append(records, m)
		}
	}
	for _, p := range st.pending {
		records = append(records, p)
	}

	st.view = &userView{records: c.arrange(records, c.deps.Clock()), fetchedAt: fetchedAt}
	return st.view
}

func (c *Coordinator) fresh(v *userView) bool {
	return !v.fetchedAt.IsZero() && c.deps.Clock().Sub(v.fetchedAt) < c.cfg.TTL
}

func (c *Coordinator) snapshotLocked(v *userView) Snapshot {
	return Snapshot{Records: c.arrange(v.records, c.deps.Clock()), FetchedAt: v.fetchedAt}
}

// arrange re-derives anniversary fields and sorts a copy of ms.
func (c *Coordinator) arrange(ms []models.Memory, now time.Time) []models.Memory {
	out := models.DeriveAll(ms, now)
	models.Sort(out, c.cfg.SortOrder)
	return out
}

// edit applies fn to the user's list as one read-modify-write of the view
// and, while the view is fresh, the persisted cache.
func (c *Coordinator) edit(ctx context.Context, userID string, fn func(st *userState, list []models.Memory) ([]models.Memory, error)) error {
	st := c.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	v := c.viewLocked(ctx, userID, st)
	next, err := fn(st, cloneList(v.records))
	if err != nil {
		return err
	}
	v.records = c.arrange(next, c.deps.Clock())

	if c.fresh(v) {
		if err := c.deps.Cache.Write(ctx, userID, v.records); err != nil {
			c.deps.Logger.Warn(ctx, "cache write failed", "user_id", userID, "error", err)
		}
	}
	return nil
}

func (c *Coordinator) clearPersisted(ctx context.Context, userID string) {
	if err := c.deps.Cache.Clear(ctx, userID); err != nil {
		c.deps.Logger.Warn(ctx, "cache clear failed", "user_id", userID, "error", err)
	}
}

func (c *Coordinator) publish(ctx context.Context, userID string) {
	if c.deps.Bus == nil {
		return
	}
	if err := c.deps.Bus.PublishFrom(ctx, c.id, userID); err != nil {
		c.deps.Logger.Warn(ctx, "publish invalidation failed", "user_id", userID, "error", err)
	}
}

// HandleInvalidation drops the user's view when someone else changed the
// user's records. Own announcements and repeats inside the dedupe window
// are ignored.
func (c *Coordinator) HandleInvalidation(ev invalidation.Event) {
	if ev.Source == c.id {
		return
	}
	if c.deps.Dedupe != nil && !c.deps.Dedupe.Allow(ev.UserID) {
		return
	}

	st := c.state(ev.UserID)
	st.mu.Lock()
	st.view = nil
	st.mu.Unlock()

	ctx := context.Background()
	c.deps.Logger.Debug(ctx, "view invalidated", "user_id", ev.UserID, "remote", ev.Remote)

	if !c.cfg.RefreshOnInvalidation {
		return
	}
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if _, err := c.fetch(ctx, ev.UserID); err != nil {
			c.deps.Logger.Warn(ctx, "background refresh failed", "user_id", ev.UserID, "error", err)
		}
	}()
}

func (c *Coordinator) imageFolder(userID string) string {
	return path.Join(c.cfg.ImageFolder, userID)
}

func cloneList(ms []models.Memory) []models.Memory {
	return append([]models.Memory(nil), ms...)
}

func indexOf(ms []models.Memory, id string) int {
	for i, m := range ms {
		if models.IDOf(m) == id {
			return i
		}
	}
	return -1
}

func without(ms []models.Memory, id string) []models.Memory {
	out := ms[:0]
	for _, m := range ms {
		if models.IDOf(m) != id {
			out = append(out, m)
		}
	}
	return out
}

func notFound(id string) error {
	return fmt.Errorf("%w: memory %s", common.ErrNotFound, id)
}
