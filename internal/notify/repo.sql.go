package notify

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSource answers the change-detection queries behind the push stream.
type PGSource struct {
	pool *pgxpool.Pool
}

// NewPGSource constructs a PGSource.
func NewPGSource(pool *pgxpool.Pool) *PGSource {
	return &PGSource{pool: pool}
}

// CountTasksUpdatedSince counts tasks touched after the watermark. With
// assignedTo zero the count covers every task, otherwise only tasks assigned
// to that user. Creating a task grants no stream signal once it is assigned
// elsewhere.
func (s *PGSource) CountTasksUpdatedSince(ctx context.Context, since time.Time, assignedTo int64) (int64, error) {
	var count int64
	if assignedTo == 0 {
		err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM tasks WHERE updated_at > $1`, since,
		).Scan(&count)
		return count, err
	}
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE updated_at > $1 AND assigned_to = $2`,
		since, assignedTo,
	).Scan(&count)
	return count, err
}

// CountUsersCreatedSince counts accounts registered after the watermark.
func (s *PGSource) CountUsersCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE created_at > $1`, since,
	).Scan(&count)
	return count, err
}
