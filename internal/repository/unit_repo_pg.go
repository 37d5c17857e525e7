package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UnitRepository interface {
	List(ctx context.Context) ([]domain.Unit, error)
	GetByID(ctx context.Context, id int64) (*domain.Unit, error)
	UpdateStatus(ctx context.Context, id int64, status domain.UnitStatus) error
}

type PGUnitRepository struct {
	db *pgxpool.Pool
}

func NewUnitRepository(db *pgxpool.Pool) UnitRepository {
	return &PGUnitRepository{db: db}
}

func (r *PGUnitRepository) List(ctx context.Context) ([]domain.Unit, error) {
	rows, err := r.db.Query(ctx, `SELECT id, number, unit_type, capacity, base_price_cents, status, created_at, updated_at FROM units ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := make([]domain.Unit, 0)
	for rows.Next() {
		var u domain.Unit
		if err := rows.Scan(&u.ID, &u.Number, &u.UnitType, &u.Capacity, &u.BasePriceCents, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (r *PGUnitRepository) GetByID(ctx context.Context, id int64) (*domain.Unit, error) {
	row := r.db.QueryRow(ctx, `SELECT id, number, unit_type, capacity, base_price_cents, status, created_at, updated_at FROM units WHERE id=$1`, id)
	var u domain.Unit
	if err := row.Scan(&u.ID, &u.Number, &u.UnitType, &u.Capacity, &u.BasePriceCents, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("unit %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

func (r *PGUnitRepository) UpdateStatus(ctx context.Context, id int64, status domain.UnitStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE units SET status=$1, updated_at=now() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("unit %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

var _ UnitRepository = (*PGUnitRepository)(nil)
