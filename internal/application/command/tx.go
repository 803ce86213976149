package command

import "context"

// TxRunner runs a function inside a storage transaction. The transaction
// travels in the context; repository methods named *ForUpdate rely on it
// for row locking. Implemented by the postgres connection.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
