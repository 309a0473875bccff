package repository

import (
	"fmt"

	"github.com/tphakala/audiophile/internal/errors"
)

// Sentinel errors for repository operations.
var (
	// ErrFileNotFound indicates the requested file does not exist.
	ErrFileNotFound = errors.NewStd("file not found")

	// ErrPersistence indicates a write failed and its transaction was rolled back.
	ErrPersistence = errors.NewStd("persistence failed")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.NewStd("invalid input")
)

func notFound(id uint) error {
	return errors.New(fmt.Errorf("%w: id %d", ErrFileNotFound, id)).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("file_id", id).
		Build()
}

func dbError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}

// persistenceError wraps a failed write so that it matches ErrPersistence
// while keeping the underlying cause. kv are context key/value pairs.
func persistenceError(err error, operation string, kv ...any) error {
	b := errors.New(fmt.Errorf("%w: %w", ErrPersistence, err)).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			b = b.Context(key, kv[i+1])
		}
	}
	return b.Build()
}
