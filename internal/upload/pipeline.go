package upload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/dmitrijs2005/memojournal/internal/logging"
	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/dmitrijs2005/memojournal/internal/objectstore"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 3

// Uploader performs one transport attempt. objectstore.Store satisfies it.
type Uploader interface {
	Upload(ctx context.Context, f objectstore.File, opts objectstore.UploadOptions, onProgress objectstore.ProgressFunc) (models.Image, error)
}

// Source is a file picked by the user.
type Source struct {
	Name string
	Data []byte
}

type Config struct {
	Concurrency int
	Retry       Policy
	Compress    CompressOptions
}

func DefaultConfig() Config {
	return Config{Concurrency: DefaultConcurrency, Retry: DefaultPolicy}
}

// BatchOptions apply to every file of one batch.
type BatchOptions struct {
	Folder string
	Tags   []string
	// OnChange is called after any task changes, with the task and the
	// batch progress. Calls may come from several goroutines.
	OnChange func(task models.UploadTask, overall int)
}

type Pipeline struct {
	store  Uploader
	cfg    Config
	logger logging.Logger
}

func New(store Uploader, cfg Config, logger logging.Logger) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{store: store, cfg: cfg, logger: logger}
}

// Start uploads files in the background and returns immediately.
func (p *Pipeline) Start(ctx context.Context, files []Source, opts BatchOptions) *Batch {
	ctx, cancel := context.WithCancel(ctx)
	b := &Batch{
		tasks:    make([]models.UploadTask, len(files)),
		images:   make([]models.Image, len(files)),
		cancel:   cancel,
		done:     make(chan struct{}),
		onChange: opts.OnChange,
	}
	for i, f := range files {
		b.tasks[i] = models.UploadTask{ID: uuid.NewString(), Filename: f.Name, Status: models.UploadPending}
	}

	go p.run(ctx, b, files, opts)
	return b
}

// Upload runs a batch to completion.
func (p *Pipeline) Upload(ctx context.Context, files []Source, opts BatchOptions) ([]models.Image, error) {
	return p.Start(ctx, files, opts).Wait()
}

func (p *Pipeline) run(ctx context.Context, b *Batch, files []Source, opts BatchOptions) {
	defer close(b.done)
	defer b.cancel()

	var (
		mu   sync.Mutex
		errs error
	)

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			img, err := p.uploadOne(ctx, b, i, f, opts)
			if err != nil {
				b.finish(i, models.UploadError, err.Error())
				mu.Lock()
				errs = multierr.Append(errs, &FileError{Index: i, Name: f.Name, Err: err})
				mu.Unlock()
				return nil
			}
			b.images[i] = img
			b.finish(i, models.UploadSuccess, "")
			return nil
		})
	}
	_ = g.Wait()

	if b.isAborted() || errors.Is(ctx.Err(), context.Canceled) {
		b.err = fmt.Errorf("%w: upload aborted", common.ErrCancelled)
		return
	}
	if err := newBatchError(len(files), errs); err != nil {
		b.err = err
		p.logger.Warn(ctx, "upload batch failed", "error", err)
	}
}

func (p *Pipeline) uploadOne(ctx context.Context, b *Batch, i int, src Source, opts BatchOptions) (models.Image, error) {
	if err := ctx.Err(); err != nil {
		return models.Image{}, fmt.Errorf("%w: %v", common.ErrCancelled, err)
	}

	file := Compress(src.Name, src.Data, p.cfg.Compress)
	uploadOpts := objectstore.UploadOptions{Folder: opts.Folder, Tags: opts.Tags, PublicID: uuid.NewString()}

	return Do(ctx, p.cfg.Retry, func(ctx context.Context, attempt int) (models.Image, error) {
		b.start(i)
		img, err := p.store.Upload(ctx, file, uploadOpts, func(pct int) { b.progress(i, pct) })
		if err != nil && common.IsTransient(err) && attempt <= p.cfg.Retry.MaxRetries {
			p.logger.Warn(ctx, "upload attempt failed, retrying",
				"file", src.Name, "attempt", attempt, "delay", p.cfg.Retry.Delay(attempt), "error", err)
		}
		return img, err
	})
}

// Batch is one running upload. Its methods are safe for concurrent use.
type Batch struct {
	cancel   context.CancelFunc
	done     chan struct{}
	onChange func(models.UploadTask, int)

	mu      sync.Mutex
	tasks   []models.UploadTask
	aborted bool

	// written by run before done is closed
	images []models.Image
	err    error
}

// Tasks returns a snapshot of every file's state, in input order.
func (b *Batch) Tasks() []models.UploadTask {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.UploadTask(nil), b.tasks...)
}

// Progress is the rounded mean of all task progress, pending tasks included.
func (b *Batch) Progress() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progressLocked()
}

func (b *Batch) progressLocked() int {
	if len(b.tasks) == 0 {
		return 100
	}
	sum := 0
	for _, t := range b.tasks {
		sum += t.Progress
	}
	return int(math.Round(float64(sum) / float64(len(b.tasks))))
}

// Abort cancels in-flight transports. Wait then returns common.ErrCancelled.
func (b *Batch) Abort() {
	b.mu.Lock()
	b.aborted = true
	b.mu.Unlock()
	b.cancel()
}

// Done is closed when every file reached a terminal status.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Wait blocks until the batch ends and returns the images in input order.
func (b *Batch) Wait() ([]models.Image, error) {
	<-b.done
	if b.err != nil {
		return nil, b.err
	}
	return b.images, nil
}

func (b *Batch) isAborted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.aborted
}

func (b *Batch) start(i int) {
	b.update(i, func(t *models.UploadTask) {
		t.Status = models.UploadUploading
		t.Progress = 0
		t.Error = ""
	})
}

func (b *Batch) progress(i int, pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	b.update(i, func(t *models.UploadTask) {
		if t.Status == models.UploadUploading && pct > t.Progress {
			t.Progress = pct
		}
	})
}

func (b *Batch) finish(i int, status models.UploadStatus, msg string) {
	b.update(i, func(t *models.UploadTask) {
		t.Status = status
		t.Error = msg
		if status == models.UploadSuccess {
			t.Progress = 100
		}
	})
}

func (b *Batch) update(i int, fn func(t *models.UploadTask)) {
	b.mu.Lock()
	fn(&b.tasks[i])
	task, overall := b.tasks[i], b.progressLocked()
	b.mu.Unlock()

	if b.onChange != nil {
		b.onChange(task, overall)
	}
}

// ErrorIndexes lists the failing file positions of a batch error.
func ErrorIndexes(err error) []int {
	var be *BatchError
	if !errors.As(err, &be) {
		return nil
	}
	out := make([]int, len(be.Failures))
	for i, f := range be.Failures {
		out[i] = f.Index
	}
	return out
}
