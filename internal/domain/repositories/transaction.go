package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions
type TransactionManager interface {
	// ExecTx executes fn within a transaction carried by the context passed to fn.
	// If ctx already carries a transaction, fn joins it: nested calls never
	// open a second transaction, so a recursive operation commits or rolls
	// back as one unit at the outermost ExecTx.
	ExecTx(ctx context.Context, fn TxFn) error
}
