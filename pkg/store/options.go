package store

import (
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formbuilder/pkg/storage"
)

const defaultPersistTimeout = 5 * time.Second

// Option customises a Store.
type Option func(*Store)

// WithStorage attaches a persistence backend. The store restores from it in
// New and writes to it after every successful mutation.
func WithStorage(st storage.Storage) Option {
	return func(s *Store) {
		s.storage = st
	}
}

// WithLogger sets the logger used for restore and persistence warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPersistTimeout bounds each storage call.
func WithPersistTimeout(timeout time.Duration) Option {
	return func(s *Store) {
		if timeout > 0 {
			s.persistTimeout = timeout
		}
	}
}
