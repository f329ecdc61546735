package cooldown

import (
	"context"

	"github.com/OldStager01/cloud-optimizer/pkg/database/queries"
	"github.com/OldStager01/cloud-optimizer/pkg/models"
)

// PostgresStore backs cooldown state with the shared database, for
// daemon deployments where several processes may scale the same fleet.
type PostgresStore struct {
	queries *queries.CooldownQueries
}

func NewPostgresStore(q *queries.CooldownQueries) *PostgresStore {
	return &PostgresStore{queries: q}
}

func (s *PostgresStore) Last(ctx context.Context, groupID string) (*models.CooldownEntry, error) {
	return s.queries.Last(ctx, groupID)
}

func (s *PostgresStore) Record(ctx context.Context, entry models.CooldownEntry) error {
	return s.queries.Upsert(ctx, entry)
}

func (s *PostgresStore) Reset(ctx context.Context, groupID string) error {
	return s.queries.Delete(ctx, groupID)
}

func (s *PostgresStore) Close() error {
	return nil
}
