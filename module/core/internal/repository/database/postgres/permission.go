package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/internal/repository/database"
)

var _ database.PermissionRepository = (*PermissionRepo)(nil)

type PermissionRepo struct {
	db *sql.DB
}

func NewPermissionRepo(db *sql.DB) *PermissionRepo {
	return &PermissionRepo{db: db}
}

// Get returns the stored notification permission. A device that never
// answered is in the prompt state.
func (r *PermissionRepo) Get(ctx context.Context, deviceID string) (domain.Permission, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT state FROM notification_permissions WHERE device_id = $1`,
		deviceID,
	)

	var state string
	if err := row.Scan(&state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PermissionPrompt, nil
		}
		return "", err
	}
	return domain.ParsePermission(state), nil
}

func (r *PermissionRepo) Set(ctx context.Context, deviceID string, perm domain.Permission) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notification_permissions (device_id, state, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (device_id) DO UPDATE SET state = EXCLUDED.state, updated_at = NOW()`,
		deviceID, string(perm),
	)
	return err
}
