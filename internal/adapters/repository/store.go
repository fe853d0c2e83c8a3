// Package repository defines the note store interface and errors.
package repository

import (
	"context"

	"github.com/okian/trapperkeeper/internal/domain/model"
)

// Counts summarizes the size of both collections.
type Counts struct {
	Notes int
	Items int
}

// Store provides read/write access to notes and their items. Every method
// runs as one atomic read-modify-write over both collections.
type Store interface {
	// List returns copies of every note and every item, in insertion order.
	List(ctx context.Context) ([]model.Note, []model.Item, error)

	// Create appends the note and all of its items.
	Create(ctx context.Context, note model.Note, items []model.Item) error

	// Get returns the first note matching id and every item whose noteID
	// matches it. Returns ErrNotFound if no note matches.
	Get(ctx context.Context, id string) (model.Note, []model.Item, error)

	// Delete removes every note and item matching id and reports how many of
	// each were removed. Returns ErrNotFound, with nothing removed, if no
	// note matches.
	Delete(ctx context.Context, id string) (Counts, error)

	// Update retitles every note matching id and replaces the items matching
	// id with items. Returns ErrNotFound, with nothing changed, if no note
	// matches.
	Update(ctx context.Context, id string, title string, items []model.Item) error

	// Count returns the size of both collections.
	Count(ctx context.Context) Counts
}
