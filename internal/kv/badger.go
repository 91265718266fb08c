package kv

import (
	"bytes"
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/aleksaelezovic/oxigo/internal/oxierr"
)

// BadgerStorage is the on-disk Storage backend. Badger has no native
// column-family concept, so each table gets a single-byte prefix folded
// into the key; this keeps table scans as plain prefix iterations.
type BadgerStorage struct {
	db *badger.DB
}

// OpenBadger opens (creating if absent) a Badger-backed store rooted at
// dir. Pass inMemory=true for ephemeral/no-disk instances (tests, demos).
func OpenBadger(dir string, inMemory bool) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if inMemory {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, oxierr.StorageIO("open", err)
	}
	return &BadgerStorage{db: db}, nil
}

func prefixedKey(table Table, key []byte) []byte {
	out := make([]byte, 0, len(key)+1)
	out = append(out, byte(table))
	return append(out, key...)
}

func (s *BadgerStorage) View(ctx context.Context, fn func(Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return oxierr.ErrTimeout
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn, writable: false})
	})
}

func (s *BadgerStorage) Update(ctx context.Context, fn func(Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return oxierr.ErrTimeout
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn, writable: true})
	})
	if err == badger.ErrConflict {
		return fmt.Errorf("%w", oxierr.ErrWriteConflict)
	}
	return err
}

func (s *BadgerStorage) BulkLoader(ctx context.Context, atomic bool) (BulkLoader, error) {
	if err := ctx.Err(); err != nil {
		return nil, oxierr.ErrTimeout
	}
	wb := s.db.NewWriteBatch()
	return &badgerBulkLoader{wb: wb, atomic: atomic, db: s.db}, nil
}

func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

type badgerTxn struct {
	txn      *badger.Txn
	writable bool
}

func (t *badgerTxn) Get(table Table, key []byte) ([]byte, error) {
	item, err := t.txn.Get(prefixedKey(table, key))
	if err == badger.ErrKeyNotFound {
		return nil, oxierr.ErrNotFound
	}
	if err != nil {
		return nil, oxierr.StorageIO("get", err)
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) Has(table Table, key []byte) (bool, error) {
	_, err := t.txn.Get(prefixedKey(table, key))
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, oxierr.StorageIO("has", err)
	}
	return true, nil
}

func (t *badgerTxn) Set(table Table, key, value []byte) error {
	if !t.writable {
		return oxierr.ErrReadOnly
	}
	if err := t.txn.Set(prefixedKey(table, key), value); err != nil {
		return oxierr.StorageIO("set", err)
	}
	return nil
}

func (t *badgerTxn) Delete(table Table, key []byte) error {
	if !t.writable {
		return oxierr.ErrReadOnly
	}
	if err := t.txn.Delete(prefixedKey(table, key)); err != nil {
		return oxierr.StorageIO("delete", err)
	}
	return nil
}

func (t *badgerTxn) Iterator(table Table, prefix []byte, reverse bool) Iterator {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = reverse
	opts.PrefetchValues = true
	it := t.txn.NewIterator(opts)

	full := prefixedKey(table, prefix)
	tablePrefix := []byte{byte(table)}

	bi := &badgerIterator{it: it, tablePrefix: tablePrefix, scanPrefix: full}
	if reverse {
		// Badger reverse iteration seeks from the largest key <= seek;
		// append 0xff bytes so we start past any key with this prefix.
		seek := append(append([]byte{}, full...), 0xff)
		it.Seek(seek)
	} else {
		it.Seek(full)
	}
	return bi
}

type badgerIterator struct {
	it          *badger.Iterator
	tablePrefix []byte
	scanPrefix  []byte
}

func (it *badgerIterator) Valid() bool {
	return it.it.ValidForPrefix(it.scanPrefix)
}

func (it *badgerIterator) Next() { it.it.Next() }

func (it *badgerIterator) Key() []byte {
	k := it.it.Item().KeyCopy(nil)
	return bytes.TrimPrefix(k, it.tablePrefix)
}

func (it *badgerIterator) Value() ([]byte, error) {
	v, err := it.it.Item().ValueCopy(nil)
	if err != nil {
		return nil, oxierr.StorageIO("iterator value", err)
	}
	return v, nil
}

func (it *badgerIterator) Close() { it.it.Close() }

type badgerBulkLoader struct {
	wb     *badger.WriteBatch
	db     *badger.DB
	atomic bool
}

func (b *badgerBulkLoader) Set(table Table, key, value []byte) error {
	if err := b.wb.Set(prefixedKey(table, key), value); err != nil {
		if b.atomic {
			return oxierr.StorageIO("bulk set", err)
		}
		// Non-atomic mode: drop the offending entry and keep loading.
		return nil
	}
	return nil
}

func (b *badgerBulkLoader) Flush() error {
	if err := b.wb.Flush(); err != nil {
		return oxierr.StorageIO("bulk flush", err)
	}
	b.wb = b.db.NewWriteBatch()
	return nil
}

func (b *badgerBulkLoader) Close() error {
	b.wb.Cancel()
	return nil
}
