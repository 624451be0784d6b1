package ledger

import "errors"

// Sentinel errors surfaced by ledger operations. Handlers translate these to
// HTTP statuses; anything else is an internal failure.
var (
	ErrAccountNotFound     = errors.New("bank account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrConstraint          = errors.New("operation blocked by related records")
)
