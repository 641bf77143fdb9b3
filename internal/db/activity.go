package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ActivityEntry is one audit-log row.
type ActivityEntry struct {
	UserID     uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	Metadata   map[string]any
}

// LogActivity appends an audit-log entry. Callers are expected to treat a
// returned error as diagnostic only; an audit write must never fail the
// user-facing operation.
func (db *DB) LogActivity(ctx context.Context, entry ActivityEntry) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO activity_logs (user_id, action, entity_type, entity_id, metadata)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)`,
		entry.UserID, entry.Action, entry.EntityType, entry.EntityID, entry.Metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	return nil
}
