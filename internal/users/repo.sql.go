package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskflow/taskflow/internal/platform/db"
	"github.com/taskflow/taskflow/internal/platform/httpx"
)

// Repository defines persistence operations for user management.
type Repository interface {
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id int64, in UpdateInput, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns all users, newest first.
func (r *PGRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, username, email, role, first_name, last_name, is_active, created_at
		 FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			user      User
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Role,
			&user.FirstName, &user.LastName, &user.IsActive, &createdAt); err != nil {
			return nil, err
		}
		user.CreatedAt = createdAt.Time
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// Update writes only the fields present in the input. passwordHash is the
// already-hashed replacement password, empty when unchanged.
func (r *PGRepository) Update(ctx context.Context, id int64, in UpdateInput, passwordHash string) error {
	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if in.FirstName != nil {
		add("first_name", *in.FirstName)
	}
	if in.LastName != nil {
		add("last_name", *in.LastName)
	}
	if in.Email != nil {
		add("email", *in.Email)
	}
	if in.Role != nil {
		add("role", *in.Role)
	}
	if in.IsActive != nil {
		add("is_active", *in.IsActive)
	}
	if passwordHash != "" {
		add("password_hash", passwordHash)
	}
	if len(sets) == 0 {
		return fmt.Errorf("%w: no fields to update", httpx.ErrInvalidInput)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: username or email already exists", httpx.ErrDuplicate)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Delete removes a user account.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
