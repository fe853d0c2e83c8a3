package repository

import (
	"github.com/okian/trapperkeeper/internal/domain/model"
	"github.com/okian/trapperkeeper/pkg/logger"
)

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithLogger sets the logger used for debug traces of store mutations.
func WithLogger(l logger.Logger) Option {
	return func(s *MemStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCapacity preallocates room for n notes and n items.
func WithCapacity(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.notes = make([]model.Note, 0, n)
			s.items = make([]model.Item, 0, n)
		}
	}
}
