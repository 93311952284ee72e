package config

import "sync/atomic"

// Store holds the last-loaded Config behind a version counter, so
// callers can cheaply detect a reload without re-parsing the
// environment on every call. workflow.Router reads Current() at the
// start of every ProcessMsg call, so it always uses the latest load.
type Store struct {
	cfg atomic.Pointer[Config]
	ver atomic.Int64
}

// NewStore loads an initial Config and wraps it in a Store at version 1.
func NewStore() *Store {
	s := &Store{}
	s.cfg.Store(Load())
	s.ver.Store(1)
	return s
}

// Current returns the most recently loaded Config.
func (s *Store) Current() *Config {
	return s.cfg.Load()
}

// Version returns the current reload version. Callers cache it
// alongside a *Config pointer and compare on each use.
func (s *Store) Version() int64 {
	return s.ver.Load()
}

// Reload re-reads the environment/.env file into a new Config and bumps
// the version counter. Safe for concurrent use.
func (s *Store) Reload() {
	s.cfg.Store(Load())
	s.ver.Add(1)
}
