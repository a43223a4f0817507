package registries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pamarcar/stays/internal/domain/bookings"
	"github.com/pamarcar/stays/internal/domain/paging"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("traveler registry not found")

// ErrBookingNotFound covers both a missing booking id and a wrong
// security code; callers cannot tell which part of the pair was wrong.
var ErrBookingNotFound = errors.New("booking not found")

// BookingRef is the capability credential presented by an anonymous
// registrant: the booking id together with its security code. It is
// deliberately a separate type from an authenticated principal.
type BookingRef struct {
	BookingID    int64
	SecurityCode string
}

// Registry is one traveler registered against a booking.
type Registry struct {
	ID                 int64
	BookingID          int64
	DocumentType       string
	DocumentNumber     string
	DocumentIssuedDate time.Time
	DocumentSupport    string
	FirstName          string
	LastName           string
	BirthDate          time.Time
	Gender             string
	Nationality        string
	Phone              string
	Email              string
	City               string
	Province           string
	Country            string
	PostalCode         string
	Signature          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type ListFilter struct {
	BookingID int64
	Email     string
}

// TxStore is the slice of storage visible inside the creation unit of
// work. All four calls run on the same database transaction, so the
// post-insert count observes the row inserted two steps earlier.
type TxStore interface {
	BookingByRef(ctx context.Context, ref BookingRef) (*bookings.Booking, error)
	InsertRegistry(ctx context.Context, registry *Registry) (*Registry, error)
	CountByBooking(ctx context.Context, bookingID int64) (int64, error)
	EnqueueAccessLink(ctx context.Context, booking *bookings.Booking) error
}

type Store interface {
	FindByID(ctx context.Context, id int64) (*Registry, error)
	List(ctx context.Context, filter ListFilter, page paging.Request) ([]Registry, int64, error)
	InTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
}

type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger.With().Str("component", "registries").Logger()}
}

// Create validates the booking reference, persists the registry and, for
// the first registry a booking ever receives, enqueues the access-link
// notification. Everything happens in one transaction: the notification
// commits with the row or not at all. Two concurrent first registrations
// can each count themselves as first, so downstream delivery is
// at-least-once per booking; a lost notification cannot happen.
func (s *Service) Create(ctx context.Context, ref BookingRef, registry *Registry) (*Registry, error) {
	var created *Registry
	err := s.store.InTx(ctx, func(ctx context.Context, tx TxStore) error {
		booking, err := tx.BookingByRef(ctx, ref)
		if err != nil {
			if errors.Is(err, bookings.ErrNotFound) {
				return ErrBookingNotFound
			}
			return fmt.Errorf("resolve booking ref: %w", err)
		}

		registry.BookingID = booking.ID
		created, err = tx.InsertRegistry(ctx, registry)
		if err != nil {
			return err
		}

		count, err := tx.CountByBooking(ctx, booking.ID)
		if err != nil {
			return fmt.Errorf("count registries: %w", err)
		}
		if count == 1 {
			if err := tx.EnqueueAccessLink(ctx, booking); err != nil {
				return fmt.Errorf("enqueue access link: %w", err)
			}
			s.logger.Info().Int64("booking_id", booking.ID).Msg("first registry, access link queued")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("id", created.ID).Int64("booking_id", created.BookingID).Msg("registry created")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Registry, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page paging.Request) ([]Registry, int64, error) {
	return s.store.List(ctx, filter, page)
}
