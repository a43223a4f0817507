package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pamarcar/stays/internal/auth"
	"github.com/pamarcar/stays/internal/domain/paging"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound           = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already taken")
)

// Account is a platform operator login. Roles holds granted role names;
// hierarchy expansion happens only at authorization time.
type Account struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ListFilter struct {
	Email string
	Name  string
}

// Store is the credential store contract.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id int64) (*Account, error)
	Insert(ctx context.Context, account *Account) (*Account, error)
	List(ctx context.Context, filter ListFilter, page paging.Request) ([]Account, int64, error)
}

// TokenIssuer is the part of the token codec authentication needs.
type TokenIssuer interface {
	Issue(subject string, roles []string) (string, error)
}

type Service struct {
	store  Store
	issuer TokenIssuer
	logger zerolog.Logger
}

func NewService(store Store, issuer TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		issuer: issuer,
		logger: logger.With().Str("component", "accounts").Logger(),
	}
}

// dummyHash keeps the bcrypt comparison on the unknown-account path so
// response timing does not reveal whether the email exists.
var dummyHash = func() string {
	hash, err := auth.HashPassword("stays-dummy-credential")
	if err != nil {
		panic(err)
	}
	return hash
}()

// normalizeEmail canonicalizes addresses so lookups match regardless of
// the casing the client typed; storage enforces uniqueness on lower(email).
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate verifies the submitted credentials and issues a token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, *Account, error) {
	account, err := s.store.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			auth.CheckPassword(dummyHash, password)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("authenticate: %w", err)
	}

	if !auth.CheckPassword(account.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(account.Email, account.Roles)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info().Str("email", account.Email).Msg("authenticated")
	return token, account, nil
}

type CreateParams struct {
	Email    string
	Name     string
	Password string
}

// Create stores a new account with the default USER role. Role grants
// beyond that are an administrative concern, not part of signup.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Account, error) {
	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	account := &Account{
		Email:        normalizeEmail(params.Email),
		Name:         params.Name,
		PasswordHash: hash,
		Roles:        []string{auth.RoleUser},
	}
	created, err := s.store.Insert(ctx, account)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("email", created.Email).Int64("id", created.ID).Msg("account created")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Account, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page paging.Request) ([]Account, int64, error) {
	return s.store.List(ctx, filter, page)
}

// IsSelf reports whether the authenticated subject owns the account with
// the given id. Used for the self-access exception on role-gated reads.
func (s *Service) IsSelf(ctx context.Context, id int64, subject string) bool {
	account, err := s.store.FindByEmail(ctx, subject)
	if err != nil {
		return false
	}
	return account.ID == id
}
