package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"github.com/pamarcar/stays/internal/config"
)

// NewPool opens a connection pool with the configured size limits applied.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return pool, nil
}

func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdle)
	}
	return poolCfg, nil
}

// Repository bundles the per-entity stores over one connection pool.
// Registries additionally carries the River client so the access-link
// notification can be enqueued on the same transaction as the insert.
type Repository struct {
	pool  *pgxpool.Pool
	queue *river.Client[pgx.Tx]
}

func NewRepository(pool *pgxpool.Pool, queue *river.Client[pgx.Tx]) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{pool: pool, queue: queue}, nil
}

func (r *Repository) Accounts() *AccountRepository {
	return &AccountRepository{pool: r.pool}
}

func (r *Repository) Bookings() *BookingRepository {
	return &BookingRepository{pool: r.pool}
}

func (r *Repository) Registries() *RegistryRepository {
	return &RegistryRepository{pool: r.pool, queue: r.queue}
}

func (r *Repository) Apartments() *ApartmentRepository {
	return &ApartmentRepository{pool: r.pool}
}

func (r *Repository) Platforms() *PlatformRepository {
	return &PlatformRepository{pool: r.pool}
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
