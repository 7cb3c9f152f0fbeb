package notification

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/persistence/sqlstore"
)

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// LogEntry is one row of the notification log.
type LogEntry struct {
	ID             int64
	EventID        string
	EventType      string
	RecipientEmail string
	Subject        string
	TemplateName   string
	Status         Status
	ErrorMessage   *string
	CreatedAt      time.Time
}

// LogRepository records every delivery attempt.
type LogRepository interface {
	Record(ctx context.Context, entry LogEntry) error
	ListByRecipient(ctx context.Context, email string, limit int) ([]LogEntry, error)
}

type sqlLogRepository struct {
	store *sqlstore.Store
}

func NewLogRepository(store *sqlstore.Store) LogRepository {
	return &sqlLogRepository{store: store}
}

func (r *sqlLogRepository) Record(ctx context.Context, e LogEntry) error {
	_, err := r.store.Conn(ctx).ExecContext(ctx, `
		INSERT INTO notification_log
			(event_id, event_type, recipient_email, subject, template_name, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EventID, e.EventType, e.RecipientEmail, e.Subject, e.TemplateName,
		string(e.Status), e.ErrorMessage, sqlstore.FormatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

func (r *sqlLogRepository) ListByRecipient(ctx context.Context, email string, limit int) ([]LogEntry, error) {
	rows, err := r.store.Conn(ctx).QueryContext(ctx, `
		SELECT id, event_id, event_type, recipient_email, subject, template_name, status, error_message, created_at
		FROM notification_log
		WHERE recipient_email = ?
		ORDER BY id DESC
		LIMIT ?`, email, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var (
			e         LogEntry
			status    string
			errMsg    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.EventID, &e.EventType, &e.RecipientEmail, &e.Subject,
			&e.TemplateName, &status, &errMsg, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		e.Status = Status(status)
		if errMsg.Valid {
			e.ErrorMessage = &errMsg.String
		}
		if e.CreatedAt, err = sqlstore.ParseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
