// Package kv defines the column-family key/value contract that the quad
// store is built on, and the Table enum for the six-index quad layout plus
// the graphs and id2str column families. Two backends implement Storage:
// badger.go (on-disk, Badger v4) and memory.go (in-process, for tests and
// embedded use without a data directory).
package kv

import "context"

// Table names a column family. The six quad indexes let the pattern
// iterator pick whichever index has the longest bound key prefix for a
// given (subject, predicate, object, graph) pattern; graphs tracks the set
// of named graphs in use; id2str is the term dictionary keyed by content
// hash.
type Table int

const (
	TableID2Str Table = iota
	TableDSPO
	TableDPOS
	TableDOSP
	TableGSPO
	TableGPOS
	TableGOSP
	TableGraphs
	tableCount
)

func (t Table) String() string {
	switch t {
	case TableID2Str:
		return "id2str"
	case TableDSPO:
		return "dspo"
	case TableDPOS:
		return "dpos"
	case TableDOSP:
		return "dosp"
	case TableGSPO:
		return "gspo"
	case TableGPOS:
		return "gpos"
	case TableGOSP:
		return "gosp"
	case TableGraphs:
		return "graphs"
	default:
		return "unknown"
	}
}

// AllTables lists every column family, in a stable order used for backend
// initialization.
func AllTables() []Table {
	tables := make([]Table, 0, tableCount)
	for t := Table(0); t < tableCount; t++ {
		tables = append(tables, t)
	}
	return tables
}

// Storage is the backend contract: open column families, run atomic
// read/write transactions across them, and take consistent snapshots.
// Implementations must serialize writers (single-writer discipline) while
// allowing unlimited concurrent readers against a stable snapshot.
type Storage interface {
	// View runs fn against a read-only, point-in-time snapshot.
	View(ctx context.Context, fn func(Transaction) error) error

	// Update runs fn against a read-write transaction. Only one Update may
	// be in flight at a time; Update blocks until prior writers commit.
	Update(ctx context.Context, fn func(Transaction) error) error

	// BulkLoader returns a writer optimized for large one-shot loads,
	// optionally relaxing cross-batch atomicity for throughput.
	BulkLoader(ctx context.Context, atomic bool) (BulkLoader, error)

	// Close releases all backend resources.
	Close() error
}

// Transaction reads and writes within a single column family at a time,
// atomically across families at commit.
type Transaction interface {
	Get(table Table, key []byte) ([]byte, error)
	Has(table Table, key []byte) (bool, error)
	Set(table Table, key, value []byte) error
	Delete(table Table, key []byte) error

	// Iterator scans the keys of table that begin with prefix, in key
	// order. reverse iterates descending from the last key with the prefix.
	Iterator(table Table, prefix []byte, reverse bool) Iterator
}

// Iterator walks keys (and values) of a single column family.
type Iterator interface {
	Valid() bool
	Next()
	Key() []byte
	Value() ([]byte, error)
	Close()
}

// BulkLoader accepts writes without the per-call commit overhead of
// Transaction; Flush commits whatever has been buffered so far.
type BulkLoader interface {
	Set(table Table, key, value []byte) error
	Flush() error
	Close() error
}
