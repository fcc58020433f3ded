package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "marketgate/pkg/domain-errors"
	"marketgate/pkg/platform/tx"
)

const defaultComplianceTxTimeout = 5 * time.Second

// compliancePostgresTx files a decision row and its outbox entry in one
// Postgres transaction.
type compliancePostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newCompliancePostgresTx(db *sql.DB, timeout time.Duration) *compliancePostgresTx {
	return &compliancePostgresTx{db: db, timeout: timeout}
}

func (t *compliancePostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultComplianceTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return tx.Run(ctx, t.db, fn)
}

// memoryTx runs fn directly. The in-memory stores have nothing to roll back.
type memoryTx struct{}

func (memoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
