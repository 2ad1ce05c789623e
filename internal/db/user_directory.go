package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// UserDirectory reads the accounts table owned by the auth service.
type UserDirectory struct {
	db *sqlx.DB
}

func NewUserDirectory(database *PostgresDB) *UserDirectory {
	return &UserDirectory{db: database.Conn}
}

// ListAdminIDs returns the ids of all active administrators.
func (d *UserDirectory) ListAdminIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := d.db.SelectContext(ctx, &ids,
		"SELECT id FROM users WHERE role = 'admin' AND status IN ('active', 'approved') ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return ids, nil
}
