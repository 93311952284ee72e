package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/venuedesk/bookingengine/config"
	"github.com/venuedesk/bookingengine/domain"
)

// DB is the single JSON-shaped document the engine persists:
// {clients, events, tasks, config}. It is loaded and saved as a whole —
// there is no partial-document update; the unit of concurrency control
// is the file lock around one read-modify-write cycle, held by the
// Router for the full duration of processing one message.
type DB struct {
	Clients []*domain.Client `json:"clients"`
	Events  []*domain.Event  `json:"events"`
	Tasks   []*domain.Task   `json:"tasks"`
	Config  map[string]any   `json:"config"`
}

func emptyDB() *DB {
	return &DB{
		Clients: []*domain.Client{},
		Events:  []*domain.Event{},
		Tasks:   []*domain.Task{},
		Config:  map[string]any{},
	}
}

// Store wraps a DB path with the cross-process advisory lock that
// guards every load/save cycle. One Store instance is shared across the
// process; callers additionally serialize same-thread access with
// concurrency.ThreadLock before calling WithLock.
type Store struct {
	path     string
	lockPath string
}

// New returns a Store rooted at the configured db path.
func New(cfg *config.Config) *Store {
	return &Store{
		path:     cfg.StoreDBPath,
		lockPath: cfg.StoreDBPath + ".lock",
	}
}

// WithLock acquires the cross-process file lock, loads the document,
// runs fn against it, and — unless fn returns an error — saves the
// (possibly mutated) document back before releasing the lock. This is
// the single entry point every operation in this package goes through,
// matching the original load_db/save_db contract.
func (s *Store) WithLock(fn func(db *DB) error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return domain.NewError(domain.ErrPersistenceFailed, "store.WithLock.mkdir", err)
	}

	fl := flock.New(s.lockPath)
	if err := fl.Lock(); err != nil {
		return domain.NewError(domain.ErrPersistenceFailed, "store.WithLock.lock", err)
	}
	defer fl.Unlock()

	db, err := s.load()
	if err != nil {
		return domain.NewError(domain.ErrPersistenceFailed, "store.WithLock.load", err)
	}

	if err := fn(db); err != nil {
		return err
	}

	if err := s.save(db); err != nil {
		return domain.NewError(domain.ErrPersistenceFailed, "store.WithLock.save", err)
	}
	return nil
}

// load reads the document from disk, returning a fresh empty DB if the
// file does not yet exist.
func (s *Store) load() (*DB, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return emptyDB(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read db: %w", err)
	}
	if len(data) == 0 {
		return emptyDB(), nil
	}

	db := emptyDB()
	if err := json.Unmarshal(data, db); err != nil {
		return nil, fmt.Errorf("unmarshal db: %w", err)
	}
	return db, nil
}

// save writes the document atomically: marshal to a sibling temp file,
// fsync, then rename over the target path, so a crash mid-write never
// leaves a truncated document on disk.
func (s *Store) save(db *DB) error {
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal db: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".db-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}

// now is overridable in tests that need deterministic timestamps.
var now = time.Now
