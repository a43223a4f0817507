package platforms

import (
	"context"
	"errors"
	"time"

	"github.com/pamarcar/stays/internal/domain/paging"
	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("platform not found")

// Platform is a rental marketplace with its fee structure, percentages
// in [0, 100].
type Platform struct {
	ID             int64
	Name           string
	AppCommission  float64
	BankCommission float64
	VAT            float64
	Discount7Days  float64
	Discount28Days float64
	Comment        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ListFilter struct {
	Name string
}

type Store interface {
	FindByID(ctx context.Context, id int64) (*Platform, error)
	Insert(ctx context.Context, platform *Platform) (*Platform, error)
	List(ctx context.Context, filter ListFilter, page paging.Request) ([]Platform, int64, error)
}

type Service struct {
	store  Store
	logger zerolog.Logger
}

func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger.With().Str("component", "platforms").Logger()}
}

func (s *Service) Create(ctx context.Context, platform *Platform) (*Platform, error) {
	created, err := s.store.Insert(ctx, platform)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("id", created.ID).Str("name", created.Name).Msg("platform created")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Platform, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page paging.Request) ([]Platform, int64, error) {
	return s.store.List(ctx, filter, page)
}
