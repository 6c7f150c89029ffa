// Package sessioncache provides the local persistent key-value store that
// keeps the logged-in identity across restarts.
package sessioncache

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Keys persisted by the session provider.
const (
	KeyUserID     = "current_user_id"
	KeyUserName   = "current_user_name"
	KeyUserEmail  = "current_user_email"
	KeyUserMobile = "current_user_mobile"
)

// Store is a named file-backed key-value store. Values are flushed to disk
// on every mutation; reads are served from memory.
type Store struct {
	path   string
	values map[string]string
}

type fileFormat struct {
	Values map[string]string `toml:"values"`
}

// Open loads the store at path, creating an empty one if the file is absent.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}

	var ff fileFormat
	if _, err := toml.DecodeFile(path, &ff); err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if ff.Values != nil {
		s.values = ff.Values
	}
	return s, nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set stores key=value and flushes to disk.
func (s *Store) Set(key, value string) error {
	s.values[key] = value
	return s.flush()
}

// Remove deletes key and flushes to disk. Removing an absent key is a no-op.
func (s *Store) Remove(key string) error {
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flush()
}

// Clear removes all keys and flushes to disk.
func (s *Store) Clear() error {
	s.values = make(map[string]string)
	return s.flush()
}

func (s *Store) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(fileFormat{Values: s.values})
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
