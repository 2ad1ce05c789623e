package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

const transactionColumns = `
	id, product_id, transaction_type, quantity, previous_quantity, new_quantity,
	performed_by, supplier_id, order_id, reference_number, unit_cost, total_cost,
	notes, created_at`

// AppendTransaction writes an audit entry in the workflow's transaction.
func (t *pgTx) AppendTransaction(ctx context.Context, entry *models.InventoryTransaction) error {
	query := `INSERT INTO inventory_transactions (` + transactionColumns + `) VALUES (
		:id, :product_id, :transaction_type, :quantity, :previous_quantity, :new_quantity,
		:performed_by, :supplier_id, :order_id, :reference_number, :unit_cost, :total_cost,
		:notes, :created_at
	)`
	if _, err := t.tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to insert inventory transaction: %w", err)
	}
	return nil
}

// ListTransactions returns the audit log, newest first.
func (s *PostgresStore) ListTransactions(ctx context.Context, f models.TransactionFilter) (models.Page[models.InventoryTransaction], error) {
	f = f.Normalize()
	page := models.Page[models.InventoryTransaction]{Page: f.Page, Limit: f.Limit}

	var conditions []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = "+arg(f.ProductID))
	}
	if f.Type != "" {
		conditions = append(conditions, "transaction_type = "+arg(string(f.Type)))
	}
	if f.From != nil {
		conditions = append(conditions, "created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		conditions = append(conditions, "created_at <= "+arg(*f.To))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	if err := s.db.GetContext(ctx, &page.Total, "SELECT COUNT(*) FROM inventory_transactions"+where, args...); err != nil {
		return page, fmt.Errorf("failed to count inventory transactions: %w", err)
	}

	query := "SELECT " + transactionColumns + " FROM inventory_transactions" + where +
		" ORDER BY created_at DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg(models.Offset(f.Page, f.Limit))

	page.Items = []models.InventoryTransaction{}
	if err := s.db.SelectContext(ctx, &page.Items, query, args...); err != nil {
		return page, fmt.Errorf("failed to query inventory transactions: %w", err)
	}
	return page, nil
}
