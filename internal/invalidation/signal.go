package invalidation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/memojournal/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// FileSignal carries events between processes through a dedicated file in a
// shared directory. Senders atomically replace the file; watchers are woken
// by fsnotify and read the latest event. Only the latest event survives, so
// delivery is best-effort and unordered, like a storage-change signal.
type FileSignal struct {
	dir    string
	path   string
	logger logging.Logger

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	done      chan struct{}
	wg        sync.WaitGroup
	running   bool
	lastNonce string
}

// NewFileSignal prepares dir (created if missing) for signalling.
func NewFileSignal(dir string, logger logging.Logger) (*FileSignal, error) {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &FileSignal{dir: dir, path: filepath.Join(dir, EventName), logger: logger}, nil
}

// Send publishes ev to every watching process.
func (s *FileSignal) Send(ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+EventName+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Start watches the signal file and calls deliver for every new event whose
// origin differs from self.
func (s *FileSignal) Start(self string, deliver func(Event)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("signal watcher already running")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	s.watcher = w
	s.done = make(chan struct{})
	s.running = true
	s.wg.Add(1)
	go s.loop(self, deliver)
	return nil
}

// Stop ends watching and waits for the watcher goroutine to exit.
func (s *FileSignal) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.done)
	w := s.watcher
	s.mu.Unlock()

	err := w.Close()
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (s *FileSignal) loop(self string, deliver func(Event)) {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return

		case fe, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(fe.Name) != EventName || !fe.Has(fsnotify.Create|fsnotify.Write) {
				continue
			}
			if ev, ok := s.read(self); ok {
				deliver(ev)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn(context.Background(), "invalidation watcher error", "error", err)
		}
	}
}

// read loads the current event; false if it is unreadable, already seen or our own.
func (s *FileSignal) read(self string) (Event, bool) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return Event{}, false
	}

	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil || ev.Name != EventName {
		return Event{}, false
	}
	if ev.Origin == self || ev.Nonce == s.lastNonce {
		return Event{}, false
	}
	s.lastNonce = ev.Nonce
	return ev, true
}
