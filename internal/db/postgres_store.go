package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	orderNumberConstraint      = "orders_order_number_key"
	inventoryProductConstraint = "inventory_product_id_key"
)

// PostgresStore implements Store on PostgreSQL. Workflow transactions take
// row locks with SELECT ... FOR UPDATE.
type PostgresStore struct {
	db      *sqlx.DB
	retries int
	logger  *zap.Logger
}

func NewPostgresStore(database *PostgresDB, retries int, logger *zap.Logger) *PostgresStore {
	if retries < 1 {
		retries = 1
	}
	return &PostgresStore{db: database.Conn, retries: retries, logger: logger}
}

// WithinTx retries fn on serialization failures and deadlocks. It also
// retries unique violations that mean a concurrent transaction created the
// same row first: an order number, or the first inventory record of a
// product. The next attempt locks the row the winner inserted.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= s.retries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}

		s.logger.Warn("Retrying transaction after conflict",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt*attempt) * 10 * time.Millisecond):
		}
	}
	return err
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01":
		return true
	case "23505":
		return pqErr.Constraint == orderNumberConstraint ||
			pqErr.Constraint == inventoryProductConstraint
	}
	return false
}

// pgTx adapts a *sqlx.Tx to Tx. Its methods live next to the queries of
// each table.
type pgTx struct {
	tx *sqlx.Tx
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
