package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Sokol111/hrms-commons/pkg/events"
	"github.com/Sokol111/hrms-commons/pkg/persistence"
	"github.com/Sokol111/hrms-commons/pkg/persistence/sqlstore"
)

// Log is one row of the audit trail.
type Log struct {
	ID            int64
	EventID       string
	UserID        int64
	Action        string
	ResourceType  string
	ResourceID    int64
	Description   *string
	IPAddress     *string
	UserAgent     *string
	OldValue      *string
	NewValue      *string
	Changes       []events.FieldChange
	SourceService string
	Timestamp     time.Time
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	UserID       int64
	ResourceType string
	ResourceID   int64
	Limit        int
}

const defaultListLimit = 100

type Repository interface {
	// InsertBatch stores logs in one transaction. Logs whose event id is
	// already stored are skipped, so redelivered batches are harmless.
	InsertBatch(ctx context.Context, logs []Log) (int, error)
	List(ctx context.Context, f Filter) ([]Log, error)
}

type sqlRepository struct {
	store *sqlstore.Store
	tx    persistence.TxManager
}

func NewRepository(store *sqlstore.Store, tx persistence.TxManager) Repository {
	return &sqlRepository{store: store, tx: tx}
}

func (r *sqlRepository) InsertBatch(ctx context.Context, logs []Log) (int, error) {
	inserted := 0
	err := r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		inserted = 0
		conn := r.store.Conn(txCtx)
		for _, l := range logs {
			changes, err := encodeChanges(l.Changes)
			if err != nil {
				return err
			}
			res, err := conn.ExecContext(txCtx, `
				INSERT OR IGNORE INTO audit_logs
					(event_id, user_id, action, resource_type, resource_id, description, ip_address,
					 user_agent, old_value, new_value, changes, source_service, timestamp)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				l.EventID, l.UserID, l.Action, l.ResourceType, l.ResourceID, l.Description, l.IPAddress,
				l.UserAgent, l.OldValue, l.NewValue, changes, l.SourceService, sqlstore.FormatTime(l.Timestamp),
			)
			if err != nil {
				return fmt.Errorf("insert audit log %s: %w", l.EventID, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	return inserted, err
}

func (r *sqlRepository) List(ctx context.Context, f Filter) ([]Log, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.ResourceType != "" {
		where = append(where, "resource_type = ?")
		args = append(args, f.ResourceType)
	}
	if f.ResourceID != 0 {
		where = append(where, "resource_id = ?")
		args = append(args, f.ResourceID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, event_id, user_id, action, resource_type, resource_id, description, ip_address,
		user_agent, old_value, new_value, changes, source_service, timestamp FROM audit_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.store.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var out []Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLog(rows *sql.Rows) (Log, error) {
	var (
		l                                        Log
		desc, ip, agent, oldValue, newValue, chg sql.NullString
		ts                                       string
	)
	if err := rows.Scan(&l.ID, &l.EventID, &l.UserID, &l.Action, &l.ResourceType, &l.ResourceID,
		&desc, &ip, &agent, &oldValue, &newValue, &chg, &l.SourceService, &ts); err != nil {
		return l, fmt.Errorf("scan audit log: %w", err)
	}
	l.Description = nullable(desc)
	l.IPAddress = nullable(ip)
	l.UserAgent = nullable(agent)
	l.OldValue = nullable(oldValue)
	l.NewValue = nullable(newValue)
	if chg.Valid {
		if err := json.Unmarshal([]byte(chg.String), &l.Changes); err != nil {
			return l, fmt.Errorf("decode changes of %s: %w", l.EventID, err)
		}
	}
	var err error
	l.Timestamp, err = sqlstore.ParseTime(ts)
	return l, err
}

func encodeChanges(changes []events.FieldChange) (*string, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("encode changes: %w", err)
	}
	s := string(b)
	return &s, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
