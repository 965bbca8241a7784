package cache

import (
	"errors"
	"path/filepath"
)

// FileName is the name of the cache file inside the cache directory.
const FileName = "charts.msgpack"

// Store is a ChartCache bound to a file on disk.
type Store struct {
	*ChartCache
	path string
}

// Open loads the store kept in dir. A missing cache file yields an empty store.
func Open(dir string, maxEntries int) (*Store, error) {
	if dir == "" {
		return nil, errors.New("no cache directory set")
	}

	s := &Store{
		ChartCache: New(Options{MaxEntries: maxEntries}),
		path:       filepath.Join(dir, FileName),
	}
	if err := LoadFromFile(s.ChartCache, s.path); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the cache file location.
func (s *Store) Path() string {
	return s.path
}

// Lookup returns the cached chart for key.
func (s *Store) Lookup(key string) (string, bool) {
	e, ok := s.Get(key)
	if !ok {
		return "", false
	}
	return e.Chart, true
}

// Save persists the store to disk.
func (s *Store) Save() error {
	return PersistToFile(s.ChartCache, s.path)
}
