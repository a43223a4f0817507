package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pamarcar/stays/internal/domain/bookings"
	"github.com/pamarcar/stays/internal/domain/paging"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

const bookingColumns = `id, platform_code, security_code, start_date, end_date, price_day,
	comment, platform_id, apartment_id, user_id, created_at, updated_at`

func scanBooking(row pgx.Row) (*bookings.Booking, error) {
	var booking bookings.Booking
	err := row.Scan(
		&booking.ID,
		&booking.PlatformCode,
		&booking.SecurityCode,
		&booking.StartDate,
		&booking.EndDate,
		&booking.PriceDay,
		&booking.Comment,
		&booking.PlatformID,
		&booking.ApartmentID,
		&booking.UserID,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id int64) (*bookings.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	booking, err := scanBooking(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, bookings.ErrNotFound
		}
		return nil, fmt.Errorf("find booking by id: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) FindByPlatformCode(ctx context.Context, code string) (*bookings.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE platform_code = $1`, code)
	booking, err := scanBooking(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, bookings.ErrNotFound
		}
		return nil, fmt.Errorf("find booking by platform code: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) Insert(ctx context.Context, booking *bookings.Booking) (*bookings.Booking, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO bookings (platform_code, security_code, start_date, end_date, price_day, comment, platform_id, apartment_id, user_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+bookingColumns,
		booking.PlatformCode, booking.SecurityCode, booking.StartDate, booking.EndDate,
		booking.PriceDay, booking.Comment, booking.PlatformID, booking.ApartmentID, booking.UserID)

	created, err := scanBooking(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, bookings.ErrPlatformCodeTaken
		}
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	return created, nil
}

func (r *BookingRepository) List(ctx context.Context, filter bookings.ListFilter, page paging.Request) ([]bookings.Booking, int64, error) {
	where, args := bookingFilter(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM bookings`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + where + orderBy(page.Sort, "id") +
		fmt.Sprintf(` LIMIT %d OFFSET %d`, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []bookings.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *booking)
	}
	return out, total, rows.Err()
}

func bookingFilter(filter bookings.ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.ID != 0 {
		args = append(args, filter.ID)
		clauses = append(clauses, fmt.Sprintf("id = $%d", len(args)))
	}
	if filter.PlatformCode != "" {
		args = append(args, "%"+filter.PlatformCode+"%")
		clauses = append(clauses, fmt.Sprintf("platform_code ILIKE $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
