package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pamarcar/stays/internal/domain/paging"
	"github.com/pamarcar/stays/internal/domain/platforms"
)

type PlatformRepository struct {
	pool *pgxpool.Pool
}

const platformColumns = `id, name, app_commission, bank_commission, vat, discount_7_days,
	discount_28_days, comment, created_at, updated_at`

func scanPlatform(row pgx.Row) (*platforms.Platform, error) {
	var platform platforms.Platform
	err := row.Scan(
		&platform.ID,
		&platform.Name,
		&platform.AppCommission,
		&platform.BankCommission,
		&platform.VAT,
		&platform.Discount7Days,
		&platform.Discount28Days,
		&platform.Comment,
		&platform.CreatedAt,
		&platform.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &platform, nil
}

func (r *PlatformRepository) FindByID(ctx context.Context, id int64) (*platforms.Platform, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+platformColumns+` FROM platforms WHERE id = $1`, id)
	platform, err := scanPlatform(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, platforms.ErrNotFound
		}
		return nil, fmt.Errorf("find platform by id: %w", err)
	}
	return platform, nil
}

func (r *PlatformRepository) Insert(ctx context.Context, platform *platforms.Platform) (*platforms.Platform, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO platforms (name, app_commission, bank_commission, vat, discount_7_days, discount_28_days, comment)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+platformColumns,
		platform.Name, platform.AppCommission, platform.BankCommission, platform.VAT,
		platform.Discount7Days, platform.Discount28Days, platform.Comment)

	created, err := scanPlatform(row)
	if err != nil {
		return nil, fmt.Errorf("insert platform: %w", err)
	}
	return created, nil
}

func (r *PlatformRepository) List(ctx context.Context, filter platforms.ListFilter, page paging.Request) ([]platforms.Platform, int64, error) {
	where := ""
	var args []any
	if filter.Name != "" {
		where = " WHERE name ILIKE $1"
		args = append(args, "%"+filter.Name+"%")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM platforms`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count platforms: %w", err)
	}

	query := `SELECT ` + platformColumns + ` FROM platforms` + where + orderBy(page.Sort, "id") +
		fmt.Sprintf(` LIMIT %d OFFSET %d`, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list platforms: %w", err)
	}
	defer rows.Close()

	var out []platforms.Platform
	for rows.Next() {
		platform, err := scanPlatform(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan platform: %w", err)
		}
		out = append(out, *platform)
	}
	return out, total, rows.Err()
}
