package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
)

const maxTxAttempts = 3

// Tx is a unit of work. Hooks registered with OnCommit run only after the
// underlying transaction committed; a rolled back attempt drops them.
type Tx struct {
	*sql.Tx
	onCommit []func()
}

func (t *Tx) OnCommit(fn func()) {
	t.onCommit = append(t.onCommit, fn)
}

// RunInTx runs fn inside a READ COMMITTED transaction. The transaction is
// rolled back on every exit path except a successful commit, including
// panics. Serialization failures and deadlocks re-run fn from scratch.
func RunInTx(ctx context.Context, db *sql.DB, fn func(tx *Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = runOnce(ctx, db, fn)
		if err == nil || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
		log.WithField("attempt", attempt).Warnf("transaction conflict, retrying: %v", err)
	}
	return err
}

func runOnce(ctx context.Context, db *sql.DB, fn func(tx *Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	tx := &Tx{Tx: sqlTx}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Errorf("rollback failed: %v", rbErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true

	for _, hook := range tx.onCommit {
		runHook(hook)
	}
	return nil
}

func runHook(hook func()) {
	defer func() {
		if p := recover(); p != nil {
			log.Errorf("post-commit hook panicked: %v", p)
		}
	}()
	hook()
}

// IsRetryable reports whether err is a Postgres serialization failure or deadlock.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
