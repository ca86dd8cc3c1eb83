package upload

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/dmitrijs2005/memojournal/internal/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedUploader fails each file's first failures[name] attempts with err.
type scriptedUploader struct {
	mu       sync.Mutex
	failures map[string]int
	err      error
	attempts map[string]int
	opts     []objectstore.UploadOptions
	block    bool
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newScripted() *scriptedUploader {
	return &scriptedUploader{failures: map[string]int{}, attempts: map[string]int{}, err: common.ErrTransient}
}

func (u *scriptedUploader) Upload(ctx context.Context, f objectstore.File, opts objectstore.UploadOptions, onProgress objectstore.ProgressFunc) (models.Image, error) {
	n := u.inFlight.Add(1)
	defer u.inFlight.Add(-1)
	for {
		m := u.maxInFlight.Load()
		if n <= m || u.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	u.mu.Lock()
	u.attempts[f.Name]++
	attempt := u.attempts[f.Name]
	fail := attempt <= u.failures[f.Name]
	u.opts = append(u.opts, opts)
	u.mu.Unlock()

	onProgress(60)
	if u.block {
		<-ctx.Done()
		return models.Image{}, fmt.Errorf("%w: %v", common.ErrCancelled, ctx.Err())
	}
	if u.delay > 0 {
		time.Sleep(u.delay)
	}
	if fail {
		return models.Image{}, fmt.Errorf("%w: attempt %d of %s", u.err, attempt, f.Name)
	}
	return models.Image{PublicID: opts.Folder + "/" + f.Name, URL: "https://cdn/" + f.Name, Format: f.Format}, nil
}

func (u *scriptedUploader) attemptsFor(name string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.attempts[name]
}

func sources(names ...string) []Source {
	out := make([]Source, len(names))
	for i, n := range names {
		out[i] = Source{Name: n, Data: []byte("raw-" + n)}
	}
	return out
}

func newPipeline(u Uploader) *Pipeline {
	return New(u, Config{Concurrency: 3, Retry: fast}, nil)
}

func TestPipeline_AllSucceed(t *testing.T) {
	u := newScripted()
	u.failures["b.jpg"] = 1

	b := newPipeline(u).Start(context.Background(), sources("a.jpg", "b.jpg", "c.jpg"),
		BatchOptions{Folder: "memories/u1", Tags: []string{"travel"}})
	images, err := b.Wait()
	require.NoError(t, err)

	require.Len(t, images, 3)
	assert.Equal(t, "https://cdn/a.jpg", images[0].URL)
	assert.Equal(t, "https://cdn/b.jpg", images[1].URL)
	assert.Equal(t, "https://cdn/c.jpg", images[2].URL)
	assert.Equal(t, 2, u.attemptsFor("b.jpg"))
	assert.Equal(t, 100, b.Progress())

	for _, task := range b.Tasks() {
		assert.Equal(t, models.UploadSuccess, task.Status)
		assert.Equal(t, 100, task.Progress)
		assert.Empty(t, task.Error)
	}
	for _, o := range u.opts {
		assert.Equal(t, "memories/u1", o.Folder)
		assert.Equal(t, []string{"travel"}, o.Tags)
		assert.NotEmpty(t, o.PublicID)
	}
}

func TestPipeline_SamePublicIDAcrossRetries(t *testing.T) {
	u := newScripted()
	u.failures["a.jpg"] = 2

	_, err := newPipeline(u).Upload(context.Background(), sources("a.jpg"), BatchOptions{})
	require.NoError(t, err)
	require.Len(t, u.opts, 3)
	assert.Equal(t, u.opts[0].PublicID, u.opts[2].PublicID)
}

func TestPipeline_ExhaustedFileFailsBatch(t *testing.T) {
	u := newScripted()
	u.failures["b.jpg"] = 100

	b := newPipeline(u).Start(context.Background(), sources("a.jpg", "b.jpg"), BatchOptions{})
	images, err := b.Wait()
	require.Error(t, err)
	assert.Nil(t, images)

	assert.ErrorIs(t, err, common.ErrPartialBatch)
	assert.ErrorIs(t, err, common.ErrTransient)
	assert.NotErrorIs(t, err, common.ErrCancelled)
	assert.Contains(t, err.Error(), "image #2 (b.jpg)")
	assert.Equal(t, []int{1}, ErrorIndexes(err))
	assert.Equal(t, 4, u.attemptsFor("b.jpg"), "MaxRetries+1 attempts")

	tasks := b.Tasks()
	assert.Equal(t, models.UploadSuccess, tasks[0].Status)
	assert.Equal(t, models.UploadError, tasks[1].Status)
	assert.NotEmpty(t, tasks[1].Error)
}

func TestPipeline_NamesEveryFailingFile(t *testing.T) {
	u := newScripted()
	u.err = common.ErrRejected
	u.failures["a.jpg"] = 1
	u.failures["c.jpg"] = 1

	_, err := newPipeline(u).Upload(context.Background(), sources("a.jpg", "b.jpg", "c.jpg"), BatchOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRejected)
	assert.Equal(t, []int{0, 2}, ErrorIndexes(err))
	assert.True(t, strings.Contains(err.Error(), "image #1 (a.jpg)") && strings.Contains(err.Error(), "image #3 (c.jpg)"))
	assert.Contains(t, err.Error(), "2 of 3 images failed")
	assert.Equal(t, 1, u.attemptsFor("a.jpg"), "rejections are not retried")
}

func TestPipeline_BoundedConcurrency(t *testing.T) {
	u := newScripted()
	u.delay = 10 * time.Millisecond

	_, err := newPipeline(u).Upload(context.Background(),
		sources("1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg", "7.jpg"), BatchOptions{})
	require.NoError(t, err)
	assert.LessOrEqual(t, u.maxInFlight.Load(), int32(3))
	assert.Greater(t, u.maxInFlight.Load(), int32(1))
}

func TestPipeline_AbortIsDistinctFromExhaustion(t *testing.T) {
	u := newScripted()
	u.block = true

	b := newPipeline(u).Start(context.Background(), sources("a.jpg", "b.jpg"), BatchOptions{})
	require.Eventually(t, func() bool { return b.Progress() > 0 }, time.Second, 5*time.Millisecond)

	b.Abort()
	_, err := b.Wait()
	require.ErrorIs(t, err, common.ErrCancelled)
	assert.NotErrorIs(t, err, common.ErrPartialBatch)

	for _, task := range b.Tasks() {
		assert.Equal(t, models.UploadError, task.Status)
	}
}

func TestPipeline_ParentCancellation(t *testing.T) {
	u := newScripted()
	u.block = true
	ctx, cancel := context.WithCancel(context.Background())

	b := newPipeline(u).Start(ctx, sources("a.jpg"), BatchOptions{})
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := b.Wait()
	require.ErrorIs(t, err, common.ErrCancelled)
}

func TestPipeline_EmptyBatch(t *testing.T) {
	b := newPipeline(newScripted()).Start(context.Background(), nil, BatchOptions{})
	images, err := b.Wait()
	require.NoError(t, err)
	assert.Empty(t, images)
	assert.Equal(t, 100, b.Progress())
}

func TestPipeline_ProgressResetsOnRetry(t *testing.T) {
	u := newScripted()
	u.failures["a.jpg"] = 1

	var mu sync.Mutex
	var seen []models.UploadTask
	_, err := newPipeline(u).Upload(context.Background(), sources("a.jpg"), BatchOptions{
		OnChange: func(task models.UploadTask, _ int) {
			mu.Lock()
			seen = append(seen, task)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	var progress []int
	for _, s := range seen {
		progress = append(progress, s.Progress)
	}
	// start, 60, restart, 60, success
	assert.Equal(t, []int{0, 60, 0, 60, 100}, progress)
	assert.Equal(t, models.UploadUploading, seen[0].Status)
	assert.Equal(t, models.UploadSuccess, seen[len(seen)-1].Status)
}

func TestBatch_ProgressIsMeanOverAllTasks(t *testing.T) {
	b := &Batch{tasks: []models.UploadTask{
		{Progress: 0, Status: models.UploadPending},
		{Progress: 50, Status: models.UploadUploading},
		{Progress: 100, Status: models.UploadSuccess},
	}}
	assert.Equal(t, 50, b.Progress())

	b.tasks = append(b.tasks, models.UploadTask{Progress: 33})
	assert.Equal(t, 46, b.Progress(), "183/4 rounds to 46")
}
