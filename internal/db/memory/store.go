// Package memory is an in-process db.Store over JSON documents.
//
// It evaluates the same structured queries as the Redis store. Every search
// runs under a read lock, so the total count and the returned window always
// come from one snapshot.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/catalog/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

var errClosed = errors.New("memory store is closed")

type document struct {
	raw    []byte
	fields map[string]any
}

// Option configures a Store.
type Option func(*Store)

// WithTextSearch enables weighted full-text matching over TEXT fields.
// Without it, queries carrying a text match fail with db.ErrTextSearchNotSupported.
func WithTextSearch() Option {
	return func(s *Store) { s.textSearch = true }
}

// Store keeps documents and index definitions in memory.
type Store struct {
	mu         sync.RWMutex
	docs       map[string]document
	indexes    map[string]*db.IndexDefinition
	textSearch bool
	closed     bool
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		docs:    make(map[string]document),
		indexes: make(map[string]*db.IndexDefinition),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errClosed
	}
	return nil
}

// Close marks the store closed. Data is kept until the process exits.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// WaitForReady returns immediately: an open memory store is always ready.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// --- JSON documents ---

// JSONSet stores a document at the root path.
func (s *Store) JSONSet(_ context.Context, key, path string, data []byte) error {
	d, err := decode(path, data)
	if err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpJSONSet, Err: errClosed}
	}
	s.docs[key] = d
	return nil
}

// JSONReplace overwrites an existing document.
func (s *Store) JSONReplace(_ context.Context, key, path string, data []byte) error {
	d, err := decode(path, data)
	if err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpJSONSet, Err: errClosed}
	}
	if _, ok := s.docs[key]; !ok {
		return db.ErrKeyNotFound
	}
	s.docs[key] = d
	return nil
}

// JSONSetMulti stores all documents or none.
func (s *Store) JSONSetMulti(_ context.Context, items []db.JSONSetItem) error {
	decoded := make([]document, len(items))
	for i, item := range items {
		d, err := decode(item.Path, item.Data)
		if err != nil {
			return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("key %s: %w", item.Key, err)}
		}
		decoded[i] = d
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &db.Error{Op: db.OpJSONSet, Err: errClosed}
	}
	for i, item := range items {
		s.docs[item.Key] = decoded[i]
	}
	return nil
}

// JSONGet returns the stored document. Only the root path is supported.
func (s *Store) JSONGet(_ context.Context, key string, paths ...string) ([]byte, error) {
	for _, p := range paths {
		if p != "$" && p != "." {
			return nil, &db.Error{Op: db.OpJSONGet, Err: fmt.Errorf("unsupported path %q", p)}
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, &db.Error{Op: db.OpJSONGet, Err: errClosed}
	}
	d, ok := s.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), d.raw...), nil
}

func decode(path string, data []byte) (document, error) {
	if path != "$" && path != "." {
		return document{}, fmt.Errorf("unsupported path %q", path)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return document{}, fmt.Errorf("decode document: %w", err)
	}
	return document{raw: append([]byte(nil), data...), fields: fields}, nil
}

// --- Index lifecycle ---

// CreateIndex registers an index definition.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	for _, f := range def.Fields {
		if _, err := jsonAttr(f.Name); err != nil {
			return &db.Error{Op: db.OpCreateIndex, Err: err}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}
	cp := *def
	cp.Prefixes = append([]string(nil), def.Prefixes...)
	cp.Fields = append([]db.IndexField(nil), def.Fields...)
	s.indexes[def.Name] = &cp
	return nil
}

// DropIndex removes an index definition. Documents are kept.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(s.indexes, name)
	return nil
}

// IndexExists reports whether an index is registered.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

// SupportsTextSearch reports whether WithTextSearch was given.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return s.textSearch
}

// jsonAttr maps "$.name" or "$.name[*]" to the top-level attribute name.
func jsonAttr(path string) (string, error) {
	name, ok := strings.CutPrefix(path, "$.")
	if !ok {
		return "", fmt.Errorf("unsupported field path %q", path)
	}
	name = strings.TrimSuffix(name, "[*]")
	if name == "" || strings.ContainsAny(name, ".[]") {
		return "", fmt.Errorf("unsupported field path %q", path)
	}
	return name, nil
}
