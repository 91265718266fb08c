// Package oxierr centralizes the error taxonomy shared by the store and the
// SPARQL evaluator: invalid input, evaluation-time errors, cancellation,
// storage IO/corruption, and optimistic write conflicts.
package oxierr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Use errors.Is against these, not the wrapped instance.
var (
	// ErrInvalidInput covers malformed IRIs and malformed SPARQL at the
	// parser boundary.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEvaluation covers a SPARQL runtime error confined to a single
	// expression evaluation (SPARQL three-valued logic: the binding is
	// dropped or the variable left unbound, not a query failure).
	ErrEvaluation = errors.New("evaluation error")

	// ErrTimeout fires when a cancellation token (context.Context) is
	// signalled mid-operation.
	ErrTimeout = errors.New("operation timed out")

	// ErrStorageIO is a backend IO error, fatal for the current operation
	// but recoverable on retry.
	ErrStorageIO = errors.New("storage io error")

	// ErrCorruption is raised when the dictionary and an index disagree,
	// e.g. a hash referenced by an index key has no id2str entry.
	ErrCorruption = errors.New("storage corruption")

	// ErrWriteConflict is returned when a writer loses an optimistic
	// race with another committed writer; the caller may retry.
	ErrWriteConflict = errors.New("write conflict")

	// ErrNotFound mirrors the teacher's ErrNotFound for point lookups.
	ErrNotFound = errors.New("not found")

	// ErrReadOnly is returned when a write is attempted on a read-only
	// transaction.
	ErrReadOnly = errors.New("transaction is read-only")
)

// InvalidInput wraps err as ErrInvalidInput with context.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidInput)...)
}

// Evaluation wraps err as ErrEvaluation with context.
func Evaluation(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrEvaluation)...)
}

// Corruption reports a dictionary/index divergence, including the offending
// encoded-term tag byte as the spec requires.
func Corruption(tag byte, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s (term tag=%d): %w", msg, tag, ErrCorruption)
}

// StorageIO wraps a backend error as ErrStorageIO.
func StorageIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("storage io during %s: %w: %w", op, err, ErrStorageIO)
}

// IsTimeout reports whether err is (or wraps) ErrTimeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsCorruption reports whether err is (or wraps) ErrCorruption.
func IsCorruption(err error) bool { return errors.Is(err, ErrCorruption) }
