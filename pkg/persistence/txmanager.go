package persistence

import "context"

// TxManager runs fn in a transaction. Repositories called with txCtx join it;
// the transaction commits when fn returns nil and rolls back otherwise.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
}
