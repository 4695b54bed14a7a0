package core

import "context"

// Transactor runs units of work atomically.
// Repositories find the running transaction in the context passed to fn.
type Transactor interface {
	// WithinTx commits when fn returns nil and rolls back otherwise.
	// Nested calls join the outer transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
