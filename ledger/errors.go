package ledger

import "errors"

var (
	// ErrEmptyChain signals a broken invariant: a blockchain always holds at
	// least the genesis block.
	ErrEmptyChain      = errors.New("ledger: empty chain")
	ErrIndexOutOfRange = errors.New("ledger: index out of range")
	ErrIntegrity       = errors.New("ledger: integrity check failed")
)
