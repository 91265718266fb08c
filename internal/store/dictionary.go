package store

import (
	"encoding/binary"

	"github.com/aleksaelezovic/oxigo/internal/encoding"
	"github.com/aleksaelezovic/oxigo/internal/kv"
	"github.com/aleksaelezovic/oxigo/internal/oxierr"
)

// dictionary manages the id2str column family: hash -> (refcount, string).
// Entries are reference counted so that a string shared by many quads is
// written once and only garbage collected when its last referencing quad
// is removed, resolving the dictionary GC policy left open by the spec.
type dictionary struct{}

// dictKey is the lookup key into id2str: the 16 hash/inline bytes that
// follow the type tag. Inline-encoded terms (small integers, short
// strings, numeric blank nodes) never touch the dictionary.
func dictKey(term encoding.EncodedTerm) []byte {
	return append([]byte(nil), term[1:]...)
}

func needsDictionary(term encoding.EncodedTerm, str *string) bool {
	return str != nil
}

// put increments the reference count for term's string, writing it if
// this is the first reference.
func (dictionary) put(txn kv.Transaction, term encoding.EncodedTerm, value string) error {
	key := dictKey(term)
	existing, err := txn.Get(kv.TableID2Str, key)
	if err != nil && err != oxierr.ErrNotFound {
		return err
	}
	if err == oxierr.ErrNotFound {
		return txn.Set(kv.TableID2Str, key, encodeDictEntry(1, value))
	}
	count, str := decodeDictEntry(existing)
	if str != value {
		return oxierr.Corruption(term.Tag(), "hash collision for dictionary key %x", key)
	}
	return txn.Set(kv.TableID2Str, key, encodeDictEntry(count+1, value))
}

// release decrements the reference count, deleting the entry once it
// reaches zero.
func (dictionary) release(txn kv.Transaction, term encoding.EncodedTerm) error {
	key := dictKey(term)
	existing, err := txn.Get(kv.TableID2Str, key)
	if err == oxierr.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	count, str := decodeDictEntry(existing)
	if count <= 1 {
		return txn.Delete(kv.TableID2Str, key)
	}
	return txn.Set(kv.TableID2Str, key, encodeDictEntry(count-1, str))
}

// lookup returns the dictionary string for term, or ok=false if term is
// fully inline (no dictionary entry expected).
func (dictionary) lookup(txn kv.Transaction, term encoding.EncodedTerm) (string, bool, error) {
	key := dictKey(term)
	raw, err := txn.Get(kv.TableID2Str, key)
	if err == oxierr.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	_, str := decodeDictEntry(raw)
	return str, true, nil
}

func encodeDictEntry(count uint64, value string) []byte {
	buf := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(buf[:8], count)
	copy(buf[8:], value)
	return buf
}

func decodeDictEntry(raw []byte) (uint64, string) {
	count := binary.BigEndian.Uint64(raw[:8])
	return count, string(raw[8:])
}
