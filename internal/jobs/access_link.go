package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"

	"github.com/pamarcar/stays/internal/email"
)

// AccessLinkArgs carries the booking details needed to notify the host that a
// traveler registry was completed for their booking.
type AccessLinkArgs struct {
	BookingID    int64     `json:"booking_id"`
	PlatformCode string    `json:"platform_code"`
	SecurityCode string    `json:"security_code"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

func (AccessLinkArgs) Kind() string { return JobKindAccessLink }

func (AccessLinkArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: AccessLinkMaxAttempts}
}

// AccessLinkMailer sends the access link notification email.
type AccessLinkMailer interface {
	SendAccessLink(to string, data email.AccessLinkData) error
}

// AccessLinkWorker delivers the first-registry notification for a booking. It
// resolves the owning account's address from the database, so a booking whose
// owner was removed fails the job rather than silently dropping it.
type AccessLinkWorker struct {
	river.WorkerDefaults[AccessLinkArgs]
	Pool   *pgxpool.Pool
	Mailer AccessLinkMailer
	Logger zerolog.Logger
}

func (AccessLinkWorker) Kind() string { return JobKindAccessLink }

func (w AccessLinkWorker) Work(ctx context.Context, job *river.Job[AccessLinkArgs]) error {
	if w.Pool == nil {
		return fmt.Errorf("database pool not configured")
	}
	if w.Mailer == nil {
		return fmt.Errorf("mailer not configured")
	}

	const query = `
		SELECT a.email, a.name
		FROM bookings b
		JOIN accounts a ON a.id = b.user_id
		WHERE b.id = $1`

	var ownerEmail, ownerName string
	err := w.Pool.QueryRow(ctx, query, job.Args.BookingID).Scan(&ownerEmail, &ownerName)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("booking %d has no owning account", job.Args.BookingID)
	}
	if err != nil {
		return fmt.Errorf("resolve booking owner: %w", err)
	}

	data := email.AccessLinkData{
		GuestName:    ownerName,
		PlatformCode: job.Args.PlatformCode,
		CheckIn:      job.Args.StartDate.Format("2006-01-02"),
		CheckOut:     job.Args.EndDate.Format("2006-01-02"),
	}
	if err := w.Mailer.SendAccessLink(ownerEmail, data); err != nil {
		return fmt.Errorf("send access link for booking %d: %w", job.Args.BookingID, err)
	}

	w.Logger.Info().
		Int64("booking_id", job.Args.BookingID).
		Str("platform_code", job.Args.PlatformCode).
		Msg("access link notification delivered")
	return nil
}

// NewWorkers registers all job workers.
func NewWorkers(pool *pgxpool.Pool, mailer AccessLinkMailer, logger zerolog.Logger) (*river.Workers, error) {
	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, AccessLinkWorker{Pool: pool, Mailer: mailer, Logger: logger}); err != nil {
		return nil, fmt.Errorf("register access link worker: %w", err)
	}
	return workers, nil
}
