package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/trapperkeeper/internal/domain/model"
	"github.com/okian/trapperkeeper/pkg/logger"
	"github.com/okian/trapperkeeper/pkg/metrics"
)

// MemStore keeps notes and items in two ordered slices guarded by one
// mutex, so each call observes and leaves both collections consistent.
// Ids are matched with model.ID.Matches.
type MemStore struct {
	mu    sync.RWMutex
	notes []model.Note
	items []model.Item

	logger logger.Logger
}

// NewMemStore creates an empty store.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		notes:  []model.Note{},
		items:  []model.Item{},
		logger: logger.GetOrNop().Named("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// publishSizes must be called with s.mu held.
func (s *MemStore) publishSizes() {
	metrics.UpdateCollectionSizes(len(s.notes), len(s.items))
}

// List returns copies of all notes and items.
func (s *MemStore) List(_ context.Context) ([]model.Note, []model.Item, error) {
	defer observe(metrics.OpList, time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.notes), model.CloneItems(s.items), nil
}

// Create appends note and items.
func (s *MemStore) Create(ctx context.Context, note model.Note, items []model.Item) error {
	defer observe(metrics.OpCreate, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes = append(s.notes, note)
	s.items = append(s.items, model.CloneItems(items)...)
	s.publishSizes()

	s.logger.Debug(ctx, "note stored",
		logger.String("id", note.ID.String()),
		logger.Int("items", len(items)),
	)
	return nil
}

// Get returns the first matching note and all matching items.
func (s *MemStore) Get(_ context.Context, id string) (model.Note, []model.Item, error) {
	defer observe(metrics.OpGet, time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	i := slices.IndexFunc(s.notes, func(n model.Note) bool { return n.ID.Matches(id) })
	if i < 0 {
		metrics.RecordErrorByComponent("store", "not_found")
		return model.Note{}, nil, ErrNotFound
	}

	items := []model.Item{}
	for _, it := range s.items {
		if it.NoteID.Matches(id) {
			items = append(items, it.Clone())
		}
	}
	return s.notes[i], items, nil
}

// Delete drops every matching note and item.
func (s *MemStore) Delete(ctx context.Context, id string) (Counts, error) {
	defer observe(metrics.OpDelete, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	notes := slices.DeleteFunc(slices.Clone(s.notes), func(n model.Note) bool { return n.ID.Matches(id) })
	if len(notes) == len(s.notes) {
		metrics.RecordErrorByComponent("store", "not_found")
		return Counts{}, ErrNotFound
	}
	items := slices.DeleteFunc(slices.Clone(s.items), func(it model.Item) bool { return it.NoteID.Matches(id) })

	removed := Counts{Notes: len(s.notes) - len(notes), Items: len(s.items) - len(items)}
	s.notes, s.items = notes, items
	s.publishSizes()

	s.logger.Debug(ctx, "note deleted",
		logger.String("id", id),
		logger.Int("notes", removed.Notes),
		logger.Int("items", removed.Items),
	)
	return removed, nil
}

// Update retitles matching notes and swaps their items for items.
func (s *MemStore) Update(ctx context.Context, id string, title string, items []model.Item) error {
	defer observe(metrics.OpUpdate, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.ContainsFunc(s.notes, func(n model.Note) bool { return n.ID.Matches(id) }) {
		metrics.RecordErrorByComponent("store", "not_found")
		return ErrNotFound
	}

	for i := range s.notes {
		if s.notes[i].ID.Matches(id) {
			s.notes[i].Title = title
		}
	}
	kept := slices.DeleteFunc(s.items, func(it model.Item) bool { return it.NoteID.Matches(id) })
	s.items = append(kept, model.CloneItems(items)...)
	s.publishSizes()

	s.logger.Debug(ctx, "note updated",
		logger.String("id", id),
		logger.Int("items", len(items)),
	)
	return nil
}

// Count returns the size of both collections.
func (s *MemStore) Count(_ context.Context) Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{Notes: len(s.notes), Items: len(s.items)}
}
