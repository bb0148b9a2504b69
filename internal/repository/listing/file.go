package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vibesearch/internal/domain"
	"github.com/kailas-cloud/vibesearch/internal/domain/listing"
)

const defaultDebounce = 400 * time.Millisecond

// FileStore serves listings from a JSON file held in memory.
// The file holds either an array of records or an object mapping id to record.
type FileStore struct {
	path     string
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.RWMutex
	records map[string]listing.Listing
}

// NewFileStore loads path and returns a store serving its records.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	s := &FileStore{path: path, logger: logger, debounce: defaultDebounce}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the record with exactly this id.
func (s *FileStore) Get(_ context.Context, id string) (listing.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.records[id]
	if !ok {
		return listing.Listing{}, fmt.Errorf("listing %q: %w", id, domain.ErrListingNotFound)
	}
	return l, nil
}

// Ping reports whether the file is still readable.
func (s *FileStore) Ping(_ context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("listing file: %w", err)
	}
	return nil
}

// Len returns the number of loaded records.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Reload re-reads the file. On failure the previous records stay in place.
func (s *FileStore) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read listings: %w", err)
	}
	records, skipped, err := decodeRecords(data)
	if err != nil {
		return fmt.Errorf("decode listings %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.logger.Info("Listings loaded",
		zap.String("path", s.path),
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped),
	)
	return nil
}

// Watch reloads the file on change until ctx is cancelled.
// The parent directory is watched so that editors replacing the file are seen.
func (s *FileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", s.path, err)
	}

	go s.run(ctx, watcher)
	return nil
}

func (s *FileStore) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(s.path)
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			if err := s.Reload(); err != nil {
				s.logger.Warn("Listing reload failed, keeping previous records", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Listing watcher error", zap.Error(err))
		}
	}
}

// decodeRecords accepts an array of records or an id → record object.
// Records that cannot be parsed are skipped and counted.
func decodeRecords(data []byte) (map[string]listing.Listing, int, error) {
	data = bytes.TrimSpace(data)
	records := make(map[string]listing.Listing)
	skipped := 0

	switch {
	case bytes.HasPrefix(data, []byte("[")):
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, 0, err
		}
		for _, item := range items {
			l, err := listing.Parse(item)
			if err != nil {
				skipped++
				continue
			}
			records[l.ID()] = l
		}
	case bytes.HasPrefix(data, []byte("{")):
		var items map[string]json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, 0, err
		}
		for key, item := range items {
			l, err := listing.ParseKeyed(key, item)
			if err != nil {
				skipped++
				continue
			}
			records[l.ID()] = l
		}
	default:
		return nil, 0, errors.New("expected a JSON array or object")
	}

	return records, skipped, nil
}
