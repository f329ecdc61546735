package queries

import (
	"context"
	"database/sql"
	"errors"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// CooldownQueries persists per-group cooldown state. One row per group;
// a new action replaces the previous one.
type CooldownQueries struct {
	db *sql.DB
}

func NewCooldownQueries(db *sql.DB) *CooldownQueries {
	return &CooldownQueries{db: db}
}

// Last returns the recorded entry for a group, or nil when the group has
// never scaled.
func (q *CooldownQueries) Last(ctx context.Context, groupID string) (*models.CooldownEntry, error) {
	query := `
		SELECT group_id, direction, recorded_at
		FROM cooldown_state
		WHERE group_id = $1`

	var entry models.CooldownEntry
	var direction string
	err := q.db.QueryRowContext(ctx, query, groupID).Scan(&entry.GroupID, &direction, &entry.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entry.Direction = models.ScalingDirection(direction)
	return &entry, nil
}

func (q *CooldownQueries) Upsert(ctx context.Context, entry models.CooldownEntry) error {
	query := `
		INSERT INTO cooldown_state (group_id, direction, recorded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id) DO UPDATE
		SET direction = EXCLUDED.direction, recorded_at = EXCLUDED.recorded_at`

	_, err := q.db.ExecContext(ctx, query, entry.GroupID, string(entry.Direction), entry.RecordedAt)
	return err
}

func (q *CooldownQueries) Delete(ctx context.Context, groupID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM cooldown_state WHERE group_id = $1`, groupID)
	return err
}
