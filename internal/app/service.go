// Package service wires the note store, validation, idempotency and the
// change feed together and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/trapperkeeper/internal/adapters/http/feed"
	eventqueue "github.com/okian/trapperkeeper/internal/adapters/mq/queue"
	workerpool "github.com/okian/trapperkeeper/internal/adapters/mq/worker"
	"github.com/okian/trapperkeeper/internal/adapters/repository"
	"github.com/okian/trapperkeeper/internal/domain/dedupe"
	"github.com/okian/trapperkeeper/internal/domain/model"
	"github.com/okian/trapperkeeper/internal/domain/notes"
	"github.com/okian/trapperkeeper/internal/domain/types"
	"github.com/okian/trapperkeeper/pkg/logger"
	"github.com/okian/trapperkeeper/pkg/metrics"
)

// ErrNotFound is returned when no note matches the requested id.
var ErrNotFound = repository.ErrNotFound

// Service implements the API dependencies for the notes backend.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	validator *notes.Validator
	deduper   dedupe.Deduper[types.CreateNote]
	keyMu     sync.Mutex // serialises keyed creates
	hub       *feed.Hub
	queue     *eventqueue.InMemoryQueue
	pool      *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	strictItems bool

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of feed workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the change queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds how many idempotency keys are remembered. Zero
// keeps every key.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithStrictItems toggles whether items must reference the note they are
// submitted with.
func WithStrictItems(strict bool) Option {
	return func(s *Service) {
		s.strictItems = strict
	}
}

// WithStore replaces the default in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. The store, validator, deduper and feed hub are
// usable immediately; Start launches the feed workers.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: 2,
		queueSize:   1024,
		dedupeSize:  10_000,
		strictItems: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.GetOrNop().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemStore(repository.WithLogger(s.logger.Named("store")))
	}
	s.validator = notes.NewValidator(notes.WithStrictItems(s.strictItems))
	s.deduper = dedupe.NewInMemoryDeduper[types.CreateNote](dedupe.WithMaxSize(s.dedupeSize))
	s.hub = feed.NewHub(s.logger)

	return s
}

// Start launches the change queue and its worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.hub)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "notes service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("strictItems", s.strictItems),
	)
	return nil
}

// Stop drains the change queue and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "notes service stopped")
}

// Hub returns the feed hub so the HTTP layer can attach subscribers.
func (s *Service) Hub() *feed.Hub { return s.hub }

// List returns every note and item.
func (s *Service) List(ctx context.Context) (types.Listing, error) {
	ns, items, err := s.store.List(ctx)
	if err != nil {
		return types.Listing{}, err
	}
	return types.Listing{Notes: ns, Items: items}, nil
}

// Create validates and stores a note. A missing id is replaced by a fresh
// UUID. The returned payload is the echo sent back to the client.
func (s *Service) Create(ctx context.Context, req types.CreateNote) (types.CreateNote, error) {
	if err := s.validator.ValidateCreate(req); err != nil {
		metrics.RecordValidationFailure()
		return types.CreateNote{}, err
	}

	if req.ID.IsZero() {
		req.ID = model.StringID(uuid.NewString())
	}
	if req.Items == nil {
		req.Items = []model.Item{}
	}

	if err := s.store.Create(ctx, model.Note{ID: req.ID, Title: req.Title}, req.Items); err != nil {
		return types.CreateNote{}, err
	}
	metrics.RecordNoteCreated()

	s.publish(ctx, model.NoteCreated, req.ID, req.Title, len(req.Items))
	return req, nil
}

// Get returns the first note matching id with its items.
func (s *Service) Get(ctx context.Context, id string) (types.NoteWithItems, error) {
	note, items, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordLookupMiss()
		}
		return types.NoteWithItems{}, err
	}
	return types.NoteWithItems{Note: note, Items: items}, nil
}

// Delete removes every note and item matching id.
func (s *Service) Delete(ctx context.Context, id string) error {
	removed, err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordLookupMiss()
		}
		return err
	}
	metrics.RecordNotesDeleted(removed.Notes)

	s.publish(ctx, model.NoteDeleted, model.StringID(id), "", removed.Items)
	return nil
}

// Update retitles the notes matching id and replaces their items. A missing
// note is reported before the payload is validated.
func (s *Service) Update(ctx context.Context, id string, req types.UpdateNote) error {
	if _, _, err := s.store.Get(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordLookupMiss()
		}
		return err
	}
	if err := s.validator.ValidateUpdate(id, req); err != nil {
		metrics.RecordValidationFailure()
		return err
	}

	if err := s.store.Update(ctx, id, req.Title, req.Items); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordLookupMiss()
		}
		return err
	}
	metrics.RecordNoteUpdated()

	s.publish(ctx, model.NoteUpdated, model.StringID(id), req.Title, len(req.Items))
	return nil
}

// CreateOnce creates req unless key already produced a note, in which case
// the echo of that first create is returned with replayed set. Failed
// creates leave the key free for a retry.
func (s *Service) CreateOnce(ctx context.Context, key string, req types.CreateNote) (echo types.CreateNote, replayed bool, err error) {
	if key == "" {
		echo, err = s.Create(ctx, req)
		return echo, false, err
	}

	s.keyMu.Lock()
	defer s.keyMu.Unlock()

	if prev, ok := s.deduper.Lookup(ctx, key); ok {
		metrics.RecordIdempotentReplay()
		return prev, true, nil
	}

	echo, err = s.Create(ctx, req)
	if err != nil {
		return types.CreateNote{}, false, err
	}
	s.deduper.Record(ctx, key, echo)
	metrics.UpdateIdempotencyKeys(s.deduper.Size())
	return echo, false, nil
}

// publish hands a change event to the feed. It never blocks the caller; a
// full or stopped queue only costs the event.
func (s *Service) publish(ctx context.Context, kind model.ChangeKind, id model.ID, title string, items int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return
	}

	e := model.ChangeEvent{
		EventID:   uuid.NewString(),
		Type:      kind,
		NoteID:    id,
		Title:     title,
		ItemCount: items,
		At:        time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, e); err != nil {
		s.logger.Warn(ctx, "change event dropped",
			logger.String("type", string(kind)),
			logger.String("note_id", id.String()),
			logger.Error(err),
		)
	}
}

// GetStats returns a snapshot for the /stats endpoint.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := s.store.Count(context.Background())
	stats := map[string]any{
		"started":         s.started,
		"notes":           counts.Notes,
		"items":           counts.Items,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"queueLength":     0,
		"feedClients":     s.hub.ClientCount(),
		"idempotencyKeys": s.deduper.Size(),
		"strictItems":     s.strictItems,
	}
	if s.started {
		stats["queueLength"] = s.queue.Len()
	}
	return stats
}
