package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pamarcar/stays/internal/domain/bookings"
	"github.com/pamarcar/stays/internal/domain/paging"
	"github.com/pamarcar/stays/internal/domain/registries"
	"github.com/pamarcar/stays/internal/jobs"
	"github.com/pamarcar/stays/internal/metrics"
	"github.com/riverqueue/river"
)

type RegistryRepository struct {
	pool  *pgxpool.Pool
	queue *river.Client[pgx.Tx]
}

const registryColumns = `id, booking_id, document_type, document_number, document_issued_date,
	document_support, first_name, last_name, birth_date, gender, nationality, phone, email,
	city, province, country, postal_code, signature, created_at, updated_at`

func scanRegistry(row pgx.Row) (*registries.Registry, error) {
	var registry registries.Registry
	err := row.Scan(
		&registry.ID,
		&registry.BookingID,
		&registry.DocumentType,
		&registry.DocumentNumber,
		&registry.DocumentIssuedDate,
		&registry.DocumentSupport,
		&registry.FirstName,
		&registry.LastName,
		&registry.BirthDate,
		&registry.Gender,
		&registry.Nationality,
		&registry.Phone,
		&registry.Email,
		&registry.City,
		&registry.Province,
		&registry.Country,
		&registry.PostalCode,
		&registry.Signature,
		&registry.CreatedAt,
		&registry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &registry, nil
}

func (r *RegistryRepository) FindByID(ctx context.Context, id int64) (*registries.Registry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+registryColumns+` FROM traveler_registries WHERE id = $1`, id)
	registry, err := scanRegistry(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, registries.ErrNotFound
		}
		return nil, fmt.Errorf("find registry by id: %w", err)
	}
	return registry, nil
}

func (r *RegistryRepository) List(ctx context.Context, filter registries.ListFilter, page paging.Request) ([]registries.Registry, int64, error) {
	where, args := registryFilter(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM traveler_registries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count registries: %w", err)
	}

	query := `SELECT ` + registryColumns + ` FROM traveler_registries` + where + orderBy(page.Sort, "id") +
		fmt.Sprintf(` LIMIT %d OFFSET %d`, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list registries: %w", err)
	}
	defer rows.Close()

	var out []registries.Registry
	for rows.Next() {
		registry, err := scanRegistry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan registry: %w", err)
		}
		out = append(out, *registry)
	}
	return out, total, rows.Err()
}

// InTx runs the registry creation unit of work on a single database
// transaction. The queued notification job rides the same transaction
// (River InsertTx), so it becomes visible if and only if the registry
// row commits.
func (r *RegistryRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx registries.TxStore) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(ctx, &registryTx{tx: tx, queue: r.queue}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type registryTx struct {
	tx    pgx.Tx
	queue *river.Client[pgx.Tx]
}

func (t *registryTx) BookingByRef(ctx context.Context, ref registries.BookingRef) (*bookings.Booking, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 AND security_code = $2`,
		ref.BookingID, ref.SecurityCode)
	booking, err := scanBooking(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, bookings.ErrNotFound
		}
		return nil, fmt.Errorf("find booking by ref: %w", err)
	}
	return booking, nil
}

func (t *registryTx) InsertRegistry(ctx context.Context, registry *registries.Registry) (*registries.Registry, error) {
	row := t.tx.QueryRow(ctx, `
INSERT INTO traveler_registries (booking_id, document_type, document_number, document_issued_date,
	document_support, first_name, last_name, birth_date, gender, nationality, phone, email,
	city, province, country, postal_code, signature)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING `+registryColumns,
		registry.BookingID, registry.DocumentType, registry.DocumentNumber, registry.DocumentIssuedDate,
		registry.DocumentSupport, registry.FirstName, registry.LastName, registry.BirthDate,
		registry.Gender, registry.Nationality, registry.Phone, registry.Email,
		registry.City, registry.Province, registry.Country, registry.PostalCode, registry.Signature)

	created, err := scanRegistry(row)
	if err != nil {
		return nil, fmt.Errorf("insert registry: %w", err)
	}
	return created, nil
}

func (t *registryTx) CountByBooking(ctx context.Context, bookingID int64) (int64, error) {
	var count int64
	if err := t.tx.QueryRow(ctx, `SELECT count(*) FROM traveler_registries WHERE booking_id = $1`, bookingID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count registries for booking: %w", err)
	}
	return count, nil
}

func (t *registryTx) EnqueueAccessLink(ctx context.Context, booking *bookings.Booking) error {
	if t.queue == nil {
		return fmt.Errorf("notification queue not configured")
	}
	_, err := t.queue.InsertTx(ctx, t.tx, jobs.AccessLinkArgs{
		BookingID:    booking.ID,
		PlatformCode: booking.PlatformCode,
		SecurityCode: booking.SecurityCode,
		StartDate:    booking.StartDate,
		EndDate:      booking.EndDate,
	}, nil)
	if err != nil {
		return fmt.Errorf("insert access link job: %w", err)
	}
	metrics.RegistryNotificationsTotal.Inc()
	return nil
}

func registryFilter(filter registries.ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.BookingID != 0 {
		args = append(args, filter.BookingID)
		clauses = append(clauses, fmt.Sprintf("booking_id = $%d", len(args)))
	}
	if filter.Email != "" {
		args = append(args, "%"+filter.Email+"%")
		clauses = append(clauses, fmt.Sprintf("email ILIKE $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
