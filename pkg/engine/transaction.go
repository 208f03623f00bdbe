package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/fornaix/presto-db/pkg/session"
	"github.com/fornaix/presto-db/pkg/transaction"
)

var (
	// ErrNoTransaction reports that the session is not bound to a known
	// transaction at commit or rollback time. This is an internal-state
	// error, not a query failure.
	ErrNoTransaction = errors.New("transaction is not present")

	// ErrNotAutoCommit reports that the session's transaction is not an
	// auto-commit transaction, so the query's execution boundary does not
	// own commit or rollback.
	ErrNotAutoCommit = errors.New("transaction does not have auto commit context enabled")
)

// transactionInfo resolves the auto-commit transaction bound to the
// session.
func transactionInfo(sess *session.Session, txns transaction.Manager) (transaction.Info, error) {
	if sess.TransactionID == nil {
		return transaction.Info{}, ErrNoTransaction
	}
	info, ok := txns.Info(*sess.TransactionID)
	if !ok {
		return transaction.Info{}, fmt.Errorf("%w: %s", ErrNoTransaction, sess.TransactionID)
	}
	if !info.AutoCommit {
		return transaction.Info{}, fmt.Errorf("%w: %s", ErrNotAutoCommit, info.ID)
	}
	return info, nil
}

func commit(ctx context.Context, sess *session.Session, txns transaction.Manager) error {
	info, err := transactionInfo(sess, txns)
	if err != nil {
		return err
	}
	return await(ctx, txns.AsyncCommit(info.ID))
}

func rollback(ctx context.Context, sess *session.Session, txns transaction.Manager) error {
	info, err := transactionInfo(sess, txns)
	if err != nil {
		return err
	}
	return await(ctx, txns.AsyncAbort(info.ID))
}

func await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
