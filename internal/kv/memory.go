package kv

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/aleksaelezovic/oxigo/internal/oxierr"
)

// MemoryStorage is the in-process Storage backend: one map per column
// family (keys are sorted when an iterator is opened) guarded by a single
// RWMutex. A commit publishes a brand
// new generation (copy-on-write at the map level) so that readers holding
// an older snapshot never observe a partial write.
type MemoryStorage struct {
	mu  sync.RWMutex
	gen *memGeneration
}

type memGeneration struct {
	tables [tableCount]map[string][]byte
}

func newGeneration() *memGeneration {
	g := &memGeneration{}
	for i := range g.tables {
		g.tables[i] = make(map[string][]byte)
	}
	return g
}

func (g *memGeneration) clone() *memGeneration {
	n := newGeneration()
	for i, m := range g.tables {
		for k, v := range m {
			n.tables[i][k] = v
		}
	}
	return n
}

// OpenMemory returns a ready-to-use in-memory store.
func OpenMemory() *MemoryStorage {
	return &MemoryStorage{gen: newGeneration()}
}

func (s *MemoryStorage) View(ctx context.Context, fn func(Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return oxierr.ErrTimeout
	}
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()
	return fn(&memTxn{gen: gen, writable: false})
}

func (s *MemoryStorage) Update(ctx context.Context, fn func(Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return oxierr.ErrTimeout
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.gen.clone()
	txn := &memTxn{gen: next, writable: true}
	if err := fn(txn); err != nil {
		return err
	}
	s.gen = next
	return nil
}

func (s *MemoryStorage) BulkLoader(ctx context.Context, atomic bool) (BulkLoader, error) {
	if err := ctx.Err(); err != nil {
		return nil, oxierr.ErrTimeout
	}
	s.mu.Lock()
	gen := s.gen.clone()
	s.mu.Unlock()
	return &memBulkLoader{storage: s, staging: gen, atomic: atomic}, nil
}

func (s *MemoryStorage) Close() error { return nil }

type memTxn struct {
	gen      *memGeneration
	writable bool
}

func (t *memTxn) Get(table Table, key []byte) ([]byte, error) {
	v, ok := t.gen.tables[table][string(key)]
	if !ok {
		return nil, oxierr.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (t *memTxn) Has(table Table, key []byte) (bool, error) {
	_, ok := t.gen.tables[table][string(key)]
	return ok, nil
}

func (t *memTxn) Set(table Table, key, value []byte) error {
	if !t.writable {
		return oxierr.ErrReadOnly
	}
	t.gen.tables[table][string(key)] = append([]byte(nil), value...)
	return nil
}

func (t *memTxn) Delete(table Table, key []byte) error {
	if !t.writable {
		return oxierr.ErrReadOnly
	}
	delete(t.gen.tables[table], string(key))
	return nil
}

func (t *memTxn) Iterator(table Table, prefix []byte, reverse bool) Iterator {
	m := t.gen.tables[table]
	keys := make([]string, 0, len(m))
	for k := range m {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	} else {
		sort.Strings(keys)
	}
	return &memIterator{keys: keys, m: m, pos: 0}
}

type memIterator struct {
	keys []string
	m    map[string][]byte
	pos  int
}

func (it *memIterator) Valid() bool { return it.pos < len(it.keys) }
func (it *memIterator) Next()       { it.pos++ }
func (it *memIterator) Key() []byte { return []byte(it.keys[it.pos]) }
func (it *memIterator) Value() ([]byte, error) {
	return append([]byte(nil), it.m[it.keys[it.pos]]...), nil
}
func (it *memIterator) Close() {}

// memBulkLoader stages writes into a private generation clone and installs
// it atomically on Flush, mirroring BadgerStorage's batch-then-commit
// shape without needing Badger's WriteBatch type.
type memBulkLoader struct {
	storage *MemoryStorage
	staging *memGeneration
	atomic  bool
}

func (b *memBulkLoader) Set(table Table, key, value []byte) error {
	b.staging.tables[table][string(key)] = append([]byte(nil), value...)
	return nil
}

func (b *memBulkLoader) Flush() error {
	b.storage.mu.Lock()
	b.storage.gen = b.staging
	b.storage.mu.Unlock()
	b.storage.mu.Lock()
	b.staging = b.storage.gen.clone()
	b.storage.mu.Unlock()
	return nil
}

func (b *memBulkLoader) Close() error { return nil }
