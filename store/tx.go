package store

import (
	"context"
)

// TxFunc is an operation body run inside a transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// RunTransaction runs fn inside tx when one is supplied; the caller then owns
// the commit. Otherwise fn runs in a new transaction that commits when fn
// returns nil and aborts with no writes applied when it returns an error.
//
// An error returned by fn is passed through unchanged. A failure to commit is
// returned as a StoreError. Conflicts are not retried.
func (s *Store) RunTransaction(ctx context.Context, tx Tx, fn TxFunc) error {
	if tx != nil {
		return fn(ctx, tx)
	}

	var bodyErr error
	err := s.backend.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		bodyErr = fn(ctx, tx)
		return bodyErr
	})
	if bodyErr != nil {
		return bodyErr
	}
	return storeErr("commit", err)
}
