package catalog

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/DrNicoArt/scaleviewer/internal/errors"
	"github.com/DrNicoArt/scaleviewer/internal/logger"
)

// ChangeFunc is notified after a new catalog version is published.
type ChangeFunc func(old, current *Catalog)

// Store holds the single active catalog version. Readers take a snapshot
// with Current and keep it for the whole query; writers serialize on mu and
// publish a new immutable Catalog.
type Store struct {
	current atomic.Pointer[Catalog]

	mu        sync.Mutex
	source    Source
	listeners []ChangeFunc
}

// NewStore creates a store holding an empty version 0 catalog.
func NewStore(src Source) *Store {
	s := &Store{source: src}
	s.current.Store(New(0, nil))
	return s
}

// Current returns the active snapshot.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// SourceName describes where Reload reads from, or "" when the store has no
// source.
func (s *Store) SourceName() string {
	if s.source == nil {
		return ""
	}
	return s.source.Describe()
}

// Subscribe registers a listener for catalog changes.
func (s *Store) Subscribe(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Reload reads the configured source and publishes its records as a new
// version.
func (s *Store) Reload(ctx context.Context) (*Catalog, error) {
	if s.source == nil {
		return nil, errors.New("catalog store has no source configured")
	}
	records, err := s.source.Load(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load catalog from %s", s.source.Describe())
	}
	entities, skipped := BuildEntities(records)
	cat := s.Replace(entities)
	logger.Infow("Catalog loaded",
		logger.FieldFile, s.source.Describe(),
		logger.FieldCount, cat.Len(),
		logger.FieldSkipped, skipped,
		logger.FieldCatalogVersion, cat.Version())
	return cat, nil
}

// Replace publishes entities as the next version.
func (s *Store) Replace(entities []*Entity) *Catalog {
	s.mu.Lock()
	old := s.current.Load()
	next := New(old.Version()+1, entities)
	s.current.Store(next)
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(old, next)
	}
	return next
}

// EditProperties applies property updates to one entity and publishes the
// result as a new version. A nil value removes the property. Queries already
// running keep their old snapshot.
func (s *Store) EditProperties(id string, updates map[string]any) (*Catalog, error) {
	if len(updates) == 0 {
		return nil, errors.NewInvalidRequestError("no property updates given for %q", id)
	}

	s.mu.Lock()
	old := s.current.Load()
	target, ok := old.Get(id)
	if !ok {
		s.mu.Unlock()
		return nil, errors.NewNotFoundError("entity %q", id)
	}
	entities := make([]*Entity, 0, old.Len())
	for _, e := range old.Entities() {
		if e.ID == id {
			entities = append(entities, target.withProperties(updates))
			continue
		}
		entities = append(entities, e)
	}
	next := New(old.Version()+1, entities)
	s.current.Store(next)
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.Unlock()

	logger.Infow("Catalog entity edited",
		logger.FieldEntityID, id,
		logger.FieldCount, len(updates),
		logger.FieldCatalogVersion, next.Version())
	for _, fn := range listeners {
		fn(old, next)
	}
	return next, nil
}
