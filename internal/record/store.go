// Package record implements the generic collection store used for every
// entity type. A collection is one JSON array under a fixed key; every
// mutation rewrites the whole array.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"studio/internal/log"
	"studio/internal/storage"
)

// Entity is anything stored in a collection
type Entity interface {
	EntityID() string
}

// Patch is a shallow set of JSON fields merged over a stored record
type Patch map[string]any

var ErrInvalidPatch = errors.New("invalid patch")

// Observer is notified after each successful mutation
type Observer func(collection, op string)

type options struct {
	logger   *log.Logger
	observer Observer
}

type Option func(*options)

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// Store is the record store for one entity type
type Store[T Entity] struct {
	backend storage.Backend
	key     string
	logger  *log.Logger
	notify  Observer

	// mu serializes read-modify-write cycles inside this process
	mu sync.Mutex
}

func New[T Entity](backend storage.Backend, key string, opts ...Option) *Store[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default(log.ComponentRecord)
	}
	return &Store[T]{backend: backend, key: key, logger: o.logger, notify: o.observer}
}

// Key returns the collection key
func (s *Store[T]) Key() string { return s.key }

// load reads the collection. Unreadable data degrades to an empty list.
func (s *Store[T]) load(ctx context.Context) ([]T, error) {
	data, ok, err := s.backend.Load(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", s.key, err)
	}
	items := []T{}
	if !ok || len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.WarnContext(ctx, "Collection data unreadable, treating as empty",
			log.FieldCollection, s.key, log.FieldError, err)
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (s *Store[T]) save(ctx context.Context, items []T, op string) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", s.key, err)
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("write collection %s: %w", s.key, err)
	}
	if s.notify != nil {
		s.notify(s.key, op)
	}
	return nil
}

// All returns every record in stored order
func (s *Store[T]) All(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Count returns the number of stored records
func (s *Store[T]) Count(ctx context.Context) (int, error) {
	items, err := s.All(ctx)
	return len(items), err
}

// Get returns the record with id; ok is false when absent
func (s *Store[T]) Get(ctx context.Context, id string) (T, bool, error) {
	var zero T
	items, err := s.All(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, it := range items {
		if it.EntityID() == id {
			return it, true, nil
		}
	}
	return zero, false, nil
}

// Query returns the records matching pred, in stored order
func (s *Store[T]) Query(ctx context.Context, pred func(T) bool) ([]T, error) {
	items, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Create appends item to the collection
func (s *Store[T]) Create(ctx context.Context, item T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return item, err
	}
	items = append(items, item)
	if err := s.save(ctx, items, log.OpCreate); err != nil {
		return item, err
	}
	s.logger.DebugContext(ctx, "Record created", log.FieldCollection, s.key, log.FieldEntityID, item.EntityID())
	return item, nil
}

// Update shallow-merges patch over the record with id. The id field is never
// changed. Absent ids report ok=false and leave the collection untouched.
func (s *Store[T]) Update(ctx context.Context, id string, patch Patch) (T, bool, error) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return zero, false, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return zero, false, nil
	}

	merged, err := merge(items[idx], patch)
	if err != nil {
		return zero, false, err
	}
	items[idx] = merged
	if err := s.save(ctx, items, log.OpUpdate); err != nil {
		return zero, false, err
	}
	return merged, true, nil
}

// Modify applies fn to the record with id and stores the result
func (s *Store[T]) Modify(ctx context.Context, id string, fn func(T) T) (T, bool, error) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return zero, false, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return zero, false, nil
	}
	updated := fn(items[idx])
	if updated.EntityID() != id {
		return zero, false, fmt.Errorf("%w: id change from %s", ErrInvalidPatch, id)
	}
	items[idx] = updated
	if err := s.save(ctx, items, log.OpUpdate); err != nil {
		return zero, false, err
	}
	return updated, true, nil
}

// ModifyWhere applies fn to every record matching pred in a single rewrite
// and returns how many records changed. Nothing is written when none match.
func (s *Store[T]) ModifyWhere(ctx context.Context, pred func(T) bool, fn func(T) T) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for i, it := range items {
		if pred(it) {
			items[i] = fn(it)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.save(ctx, items, log.OpUpdate)
}

// Delete removes the record with id and reports whether one was removed
func (s *Store[T]) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return false, nil
	}
	items = append(items[:idx], items[idx+1:]...)
	if err := s.save(ctx, items, log.OpDelete); err != nil {
		return false, err
	}
	return true, nil
}

// Replace overwrites the whole collection
func (s *Store[T]) Replace(ctx context.Context, items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, items, log.OpRestore)
}

func indexOf[T Entity](items []T, id string) int {
	for i, it := range items {
		if it.EntityID() == id {
			return i
		}
	}
	return -1
}

func merge[T Entity](current T, patch Patch) (T, error) {
	var zero T
	base, err := toMap(current)
	if err != nil {
		return zero, err
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		base[k] = v
	}
	b, err := json.Marshal(base)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return out, nil
}

func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return m, nil
}

// PatchOf turns a value into a Patch of all its JSON fields
func PatchOf(v any) (Patch, error) {
	m, err := toMap(v)
	if err != nil {
		return nil, err
	}
	return Patch(m), nil
}
