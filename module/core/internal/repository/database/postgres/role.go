package postgres

import (
	"context"
	"database/sql"

	"github.com/raviteja1088/wayfindr-app/module/core/domain"
	"github.com/raviteja1088/wayfindr-app/module/core/internal/repository/database"
)

var _ database.RoleRepository = (*RoleRepo)(nil)

type RoleRepo struct {
	db *sql.DB
}

func NewRoleRepo(db *sql.DB) *RoleRepo {
	return &RoleRepo{db: db}
}

// EnsureRole creates the fallback role for userID if none exists and
// returns the stored role. Concurrent first calls for the same user
// converge on a single row.
func (r *RoleRepo) EnsureRole(ctx context.Context, userID string, fallback domain.Role) (domain.Role, error) {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		userID, string(fallback),
	); err != nil {
		return "", err
	}

	var role string
	if err := r.db.QueryRowContext(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1`,
		userID,
	).Scan(&role); err != nil {
		return "", err
	}
	return domain.Role(role), nil
}
