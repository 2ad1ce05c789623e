package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

const notificationColumns = `
	id, user_id, message, type, is_read, read_at, related_order_id,
	related_product_id, metadata, created_at`

type notificationRow struct {
	ID               string         `db:"id"`
	UserID           string         `db:"user_id"`
	Message          string         `db:"message"`
	Type             string         `db:"type"`
	IsRead           bool           `db:"is_read"`
	ReadAt           *time.Time     `db:"read_at"`
	RelatedOrderID   string         `db:"related_order_id"`
	RelatedProductID string         `db:"related_product_id"`
	Metadata         sql.NullString `db:"metadata"`
	CreatedAt        time.Time      `db:"created_at"`
}

func (row notificationRow) notification() models.Notification {
	n := models.Notification{
		ID:               row.ID,
		UserID:           row.UserID,
		Message:          row.Message,
		Type:             models.NotificationType(row.Type),
		IsRead:           row.IsRead,
		ReadAt:           row.ReadAt,
		RelatedOrderID:   row.RelatedOrderID,
		RelatedProductID: row.RelatedProductID,
		CreatedAt:        row.CreatedAt,
	}
	if row.Metadata.Valid {
		n.Metadata = []byte(row.Metadata.String)
	}
	return n
}

type NotificationRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewNotificationRepository(database *PostgresDB) *NotificationRepository {
	return &NotificationRepository{db: database.Conn, now: time.Now}
}

// Create stores a batch of notifications atomically
func (r *NotificationRepository) Create(ctx context.Context, notifications ...models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO notifications (` + notificationColumns + `) VALUES (
		:id, :user_id, :message, :type, :is_read, :read_at, :related_order_id,
		:related_product_id, :metadata, :created_at
	)`
	for _, n := range notifications {
		row := notificationRow{
			ID:               n.ID,
			UserID:           n.UserID,
			Message:          n.Message,
			Type:             string(n.Type),
			IsRead:           n.IsRead,
			ReadAt:           n.ReadAt,
			RelatedOrderID:   n.RelatedOrderID,
			RelatedProductID: n.RelatedProductID,
			Metadata:         sql.NullString{String: string(n.Metadata), Valid: len(n.Metadata) > 0},
			CreatedAt:        n.CreatedAt,
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("failed to insert notification: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByUser returns a user's notifications, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, f models.NotificationFilter) (models.Page[models.Notification], error) {
	f = f.Normalize()
	page := models.Page[models.Notification]{Page: f.Page, Limit: f.Limit, Items: []models.Notification{}}

	where := " WHERE user_id = $1"
	if f.UnreadOnly {
		where += " AND is_read = FALSE"
	}

	if err := r.db.GetContext(ctx, &page.Total, "SELECT COUNT(*) FROM notifications"+where, f.UserID); err != nil {
		return page, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := "SELECT " + notificationColumns + " FROM notifications" + where +
		" ORDER BY created_at DESC LIMIT $2 OFFSET $3"

	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, query, f.UserID, f.Limit, models.Offset(f.Page, f.Limit)); err != nil {
		return page, fmt.Errorf("failed to query notifications: %w", err)
	}
	for _, row := range rows {
		page.Items = append(page.Items, row.notification())
	}
	return page, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE", userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the user's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	var row notificationRow
	query := `UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $1)
		WHERE id = $2 AND user_id = $3
		RETURNING ` + notificationColumns

	if err := r.db.GetContext(ctx, &row, query, r.now(), id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewError(models.ErrNotificationNotFound, "notification %s not found", id)
		}
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	n := row.notification()
	return &n, nil
}

// MarkAllRead marks every unread notification of the user and returns how many changed
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = TRUE, read_at = $1 WHERE user_id = $2 AND is_read = FALSE",
		r.now(), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return models.NewError(models.ErrNotificationNotFound, "notification %s not found", id)
	}
	return nil
}
