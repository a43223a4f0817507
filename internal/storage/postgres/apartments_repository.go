package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pamarcar/stays/internal/domain/apartments"
	"github.com/pamarcar/stays/internal/domain/paging"
)

type ApartmentRepository struct {
	pool *pgxpool.Pool
}

const apartmentColumns = `id, name, owner_id, created_at, updated_at`

func scanApartment(row pgx.Row) (*apartments.Apartment, error) {
	var apartment apartments.Apartment
	err := row.Scan(
		&apartment.ID,
		&apartment.Name,
		&apartment.OwnerID,
		&apartment.CreatedAt,
		&apartment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &apartment, nil
}

func (r *ApartmentRepository) FindByID(ctx context.Context, id int64) (*apartments.Apartment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+apartmentColumns+` FROM apartments WHERE id = $1`, id)
	apartment, err := scanApartment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apartments.ErrNotFound
		}
		return nil, fmt.Errorf("find apartment by id: %w", err)
	}
	return apartment, nil
}

func (r *ApartmentRepository) Insert(ctx context.Context, apartment *apartments.Apartment) (*apartments.Apartment, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO apartments (name, owner_id)
VALUES ($1, $2)
RETURNING `+apartmentColumns,
		apartment.Name, apartment.OwnerID)

	created, err := scanApartment(row)
	if err != nil {
		return nil, fmt.Errorf("insert apartment: %w", err)
	}
	return created, nil
}

func (r *ApartmentRepository) List(ctx context.Context, filter apartments.ListFilter, page paging.Request) ([]apartments.Apartment, int64, error) {
	where := ""
	var args []any
	if filter.Name != "" {
		where = " WHERE name ILIKE $1"
		args = append(args, "%"+filter.Name+"%")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM apartments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count apartments: %w", err)
	}

	query := `SELECT ` + apartmentColumns + ` FROM apartments` + where + orderBy(page.Sort, "id") +
		fmt.Sprintf(` LIMIT %d OFFSET %d`, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list apartments: %w", err)
	}
	defer rows.Close()

	var out []apartments.Apartment
	for rows.Next() {
		apartment, err := scanApartment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan apartment: %w", err)
		}
		out = append(out, *apartment)
	}
	return out, total, rows.Err()
}
