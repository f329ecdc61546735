package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// ActionEventQueries is the audit log of executed and failed actions.
// It satisfies the events.AuditStore interface.
type ActionEventQueries struct {
	db *sql.DB
}

func NewActionEventQueries(db *sql.DB) *ActionEventQueries {
	return &ActionEventQueries{db: db}
}

type ActionEventRecord struct {
	ID        int64           `json:"id"`
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	Provider  string          `json:"provider,omitempty"`
	RunID     string          `json:"run_id,omitempty"`
	Target    string          `json:"target,omitempty"`
	Severity  string          `json:"severity"`
	Message   string          `json:"message"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func (q *ActionEventQueries) Insert(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO action_events
			(event_id, event_type, provider, run_id, target, severity, message, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var payload any
	if event.Data != nil {
		data, err := json.Marshal(event.Data)
		if err != nil {
			return err
		}
		payload = data
	}

	_, err := q.db.ExecContext(ctx, query,
		event.ID,
		string(event.Type),
		string(event.Provider),
		event.RunID,
		event.Target,
		string(event.Severity),
		event.Message,
		payload,
		event.Timestamp,
	)
	return err
}

// Recent returns the newest events first.
func (q *ActionEventQueries) Recent(ctx context.Context, limit int) ([]ActionEventRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, event_id, event_type, provider, run_id, target, severity, message, payload, created_at
		FROM action_events
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActionEvents(rows)
}

// ForRun returns a run's events in the order they happened.
func (q *ActionEventQueries) ForRun(ctx context.Context, runID string) ([]ActionEventRecord, error) {
	query := `
		SELECT id, event_id, event_type, provider, run_id, target, severity, message, payload, created_at
		FROM action_events
		WHERE run_id = $1
		ORDER BY created_at ASC`

	rows, err := q.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActionEvents(rows)
}

// ForTarget returns the newest events touching one group or resource.
func (q *ActionEventQueries) ForTarget(ctx context.Context, target string, limit int) ([]ActionEventRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, event_id, event_type, provider, run_id, target, severity, message, payload, created_at
		FROM action_events
		WHERE target = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := q.db.QueryContext(ctx, query, target, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActionEvents(rows)
}

func scanActionEvents(rows *sql.Rows) ([]ActionEventRecord, error) {
	var records []ActionEventRecord
	for rows.Next() {
		var r ActionEventRecord
		var payload []byte
		err := rows.Scan(
			&r.ID, &r.EventID, &r.Type, &r.Provider, &r.RunID,
			&r.Target, &r.Severity, &r.Message, &payload, &r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			r.Payload = json.RawMessage(payload)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
