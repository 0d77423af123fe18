package repositories

import (
	"context"
)

// TransactionManager runs units of work atomically.
// The transaction travels in the context, so repository calls made with the context
// passed to fn join it. Nested calls join the outer transaction.
type TransactionManager interface {
	// WithinTx runs fn in a transaction, committing when fn returns nil and rolling back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
