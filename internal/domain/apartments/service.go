package apartments

import (
	"context"
	"errors"
	"time"

	"github.com/pamarcar/stays/internal/domain/paging"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("apartment not found")

type Apartment struct {
	ID        int64
	Name      string
	OwnerID   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ListFilter struct {
	Name string
}

type Store interface {
	FindByID(ctx context.Context, id int64) (*Apartment, error)
	Insert(ctx context.Context, apartment *Apartment) (*Apartment, error)
	List(ctx context.Context, filter ListFilter, page paging.Request) ([]Apartment, int64, error)
}

type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger.With().Str("component", "apartments").Logger()}
}

func (s *Service) Create(ctx context.Context, name string, ownerID int64) (*Apartment, error) {
	created, err := s.store.Insert(ctx, &Apartment{Name: name, OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("id", created.ID).Msg("apartment created")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Apartment, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page paging.Request) ([]Apartment, int64, error) {
	return s.store.List(ctx, filter, page)
}
