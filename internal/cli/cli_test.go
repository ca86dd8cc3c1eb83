package cli

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/app"
	"github.com/dmitrijs2005/memojournal/internal/common"
	"github.com/dmitrijs2005/memojournal/internal/logging"
	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/dmitrijs2005/memojournal/internal/objectstore"
	"github.com/dmitrijs2005/memojournal/internal/remote"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

type harness struct {
	t       *testing.T
	dataDir string
	lis     *bufconn.Listener
	store   *remote.MemoryStore
	images  *countingImages
}

type countingImages struct {
	mu      sync.Mutex
	uploads int
}

func (c *countingImages) Upload(_ context.Context, f objectstore.File, opts objectstore.UploadOptions, onProgress objectstore.ProgressFunc) (models.Image, error) {
	c.mu.Lock()
	c.uploads++
	c.mu.Unlock()
	onProgress(50)
	onProgress(100)
	return models.Image{PublicID: opts.PublicID, URL: "https://cdn.test/" + objectstore.ObjectKey(opts.Folder, opts.PublicID, f.Format), Format: f.Format}, nil
}

func (c *countingImages) Delete(context.Context, string) (objectstore.DeleteResult, error) {
	return objectstore.DeleteOK, nil
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Chdir(t.TempDir())

	lis := bufconn.Listen(1 << 20)
	store := remote.NewMemoryStore(time.Now)
	srv := grpc.NewServer()
	remote.RegisterServer(srv, store)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return &harness{t: t, dataDir: t.TempDir(), lis: lis, store: store, images: &countingImages{}}
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	full := append([]string{}, args...)
	full = append(full, "-a", "passthrough:///bufnet", "-d", h.dataDir)

	err := Run(context.Background(), full,
		WithIO(strings.NewReader(stdin), &out),
		WithAppOptions(
			app.WithLogger(logging.Discard()),
			app.WithObjectStore(h.images),
			app.WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return h.lis.DialContext(ctx)
			})),
		),
	)
	return out.String(), err
}

func (h *harness) records() []models.Record {
	h.t.Helper()
	rs, err := h.store.List(context.Background(), "user-1")
	require.NoError(h.t, err)
	return rs
}

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func writePNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		img.Set(x, x, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(t.TempDir(), "lake.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestJournalCommands(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("", "login", "--token", signedToken(t, "user-1"))
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as user-1")

	out, err = h.run("", "add", "--title", "Đà Lạt Trip", "--date", "2024-03-10", "--tag", "trip", "--image", writePNG(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Memory saved.")
	assert.Contains(t, out, "lake.png: success")
	assert.Equal(t, 1, h.images.uploads)

	recs := h.records()
	require.Len(t, recs, 1)
	id := recs[0].ID

	out, err = h.run("", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Đà Lạt Trip")
	assert.Contains(t, out, id)

	out, err = h.run("", "edit", id, "--title", "Hồ Xuân Hương")
	require.NoError(t, err)
	assert.Contains(t, out, "Memory updated.")
	assert.Equal(t, "Hồ Xuân Hương", h.records()[0].Title)

	out, err = h.run("", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "(online)")
	assert.Contains(t, out, "Session: user-1")

	out, err = h.run("", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")
	assert.Empty(t, h.records())

	_, err = h.run("", "logout")
	require.NoError(t, err)

	_, err = h.run("", "list")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestAdd_PromptsForMissingFields(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "login", "--token", signedToken(t, "user-1"))
	require.NoError(t, err)

	out, err := h.run("Grandma's birthday\n1950-02-28\n", "add")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "Memory saved.")

	recs := h.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "Grandma's birthday", recs[0].Title)
	assert.Equal(t, models.NewDate(1950, time.February, 28), recs[0].Date)
}

func TestAdd_ValidationFailsWithoutNetwork(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "login", "--token", signedToken(t, "user-1"))
	require.NoError(t, err)

	_, err = h.run("\n\n", "add")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Empty(t, h.records())
}

func TestLogin_ReadsTokenFromTerminal(t *testing.T) {
	h := newHarness(t)

	orig := readSecret
	t.Cleanup(func() { readSecret = orig })
	tok := signedToken(t, "user-7")
	readSecret = func(int) ([]byte, error) { return []byte(tok + "\n"), nil }

	out, err := h.run("", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Session token: ")
	assert.Contains(t, out, "Signed in as user-7")
}

func TestConfigErrorsSurface(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("", "list", "-s", "alphabetical")
	require.Error(t, err)
}
