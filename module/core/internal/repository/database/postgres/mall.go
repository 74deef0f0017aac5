package postgres

import (
	"context"
	"database/sql"

	"github.com/nandanugg/mallfence/module/core/domain"
	"github.com/nandanugg/mallfence/module/core/internal/repository/database"
)

var _ database.MallRepository = (*MallRepo)(nil)

type MallRepo struct {
	db *sql.DB
}

func NewMallRepo(db *sql.DB) *MallRepo {
	return &MallRepo{db: db}
}

func (r *MallRepo) ListMalls(ctx context.Context) ([]domain.Mall, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, latitude, longitude FROM shopping_malls ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Mall
	for rows.Next() {
		var (
			m        domain.Mall
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&m.ID, &m.Name, &lat, &lon); err != nil {
			return nil, err
		}
		if lat.Valid {
			m.Latitude = &lat.Float64
		}
		if lon.Valid {
			m.Longitude = &lon.Float64
		}
		results = append(results, m)
	}
	return results, rows.Err()
}
