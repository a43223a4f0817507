package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pamarcar/stays/internal/domain/paging"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrPlatformCodeTaken = errors.New("booking already exists for platform code")
	ErrInvalidDateRange  = errors.New("end date must be after start date")
)

// Booking is a stay sold through a rental platform. SecurityCode is the
// server-generated capability secret that lets an unauthenticated guest
// register travelers against the booking; it is exposed only on create.
type Booking struct {
	ID           int64
	PlatformCode string
	SecurityCode string
	StartDate    time.Time
	EndDate      time.Time
	PriceDay     float64
	Comment      string
	PlatformID   int64
	ApartmentID  int64
	UserID       int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ListFilter struct {
	ID           int64
	PlatformCode string
}

type Store interface {
	FindByID(ctx context.Context, id int64) (*Booking, error)
	FindByPlatformCode(ctx context.Context, code string) (*Booking, error)
	Insert(ctx context.Context, booking *Booking) (*Booking, error)
	List(ctx context.Context, filter ListFilter, page paging.Request) ([]Booking, int64, error)
}

type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger.With().Str("component", "bookings").Logger()}
}

type CreateParams struct {
	PlatformCode string
	StartDate    time.Time
	EndDate      time.Time
	PriceDay     float64
	Comment      string
	PlatformID   int64
	ApartmentID  int64
	UserID       int64
}

// Create stores a booking with a freshly generated security code. The
// platform-assigned code must be unique across bookings.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Booking, error) {
	if !params.EndDate.After(params.StartDate) {
		return nil, ErrInvalidDateRange
	}

	existing, err := s.store.FindByPlatformCode(ctx, params.PlatformCode)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check platform code: %w", err)
	}
	if existing != nil {
		return nil, ErrPlatformCodeTaken
	}

	booking := &Booking{
		PlatformCode: params.PlatformCode,
		SecurityCode: uuid.NewString(),
		StartDate:    params.StartDate,
		EndDate:      params.EndDate,
		PriceDay:     params.PriceDay,
		Comment:      params.Comment,
		PlatformID:   params.PlatformID,
		ApartmentID:  params.ApartmentID,
		UserID:       params.UserID,
	}
	created, err := s.store.Insert(ctx, booking)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("id", created.ID).Str("platform_code", created.PlatformCode).Msg("booking created")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Booking, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page paging.Request) ([]Booking, int64, error) {
	return s.store.List(ctx, filter, page)
}
