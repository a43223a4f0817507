package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pamarcar/stays/internal/auth"
	"github.com/pamarcar/stays/internal/config"
	"github.com/pamarcar/stays/internal/domain/accounts"
	"github.com/pamarcar/stays/internal/domain/apartments"
	"github.com/pamarcar/stays/internal/domain/bookings"
	"github.com/pamarcar/stays/internal/domain/paging"
	"github.com/pamarcar/stays/internal/domain/platforms"
	"github.com/pamarcar/stays/internal/domain/registries"
)

var routerTestKey = []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

type memAccounts struct {
	accounts map[string]*accounts.Account
}

func (s *memAccounts) FindByEmail(_ context.Context, email string) (*accounts.Account, error) {
	if a, ok := s.accounts[email]; ok {
		return a, nil
	}
	return nil, accounts.ErrNotFound
}

func (s *memAccounts) FindByID(_ context.Context, id int64) (*accounts.Account, error) {
	for _, a := range s.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (s *memAccounts) Insert(_ context.Context, a *accounts.Account) (*accounts.Account, error) {
	if _, ok := s.accounts[a.Email]; ok {
		return nil, accounts.ErrEmailTaken
	}
	stored := *a
	stored.ID = int64(len(s.accounts) + 1)
	s.accounts[a.Email] = &stored
	return &stored, nil
}

func (s *memAccounts) List(_ context.Context, _ accounts.ListFilter, _ paging.Request) ([]accounts.Account, int64, error) {
	out := make([]accounts.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

type memApartments struct {
	items []apartments.Apartment
}

func (s *memApartments) FindByID(_ context.Context, id int64) (*apartments.Apartment, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i], nil
		}
	}
	return nil, apartments.ErrNotFound
}

func (s *memApartments) Insert(_ context.Context, a *apartments.Apartment) (*apartments.Apartment, error) {
	stored := *a
	stored.ID = int64(len(s.items) + 1)
	s.items = append(s.items, stored)
	return &stored, nil
}

func (s *memApartments) List(_ context.Context, _ apartments.ListFilter, _ paging.Request) ([]apartments.Apartment, int64, error) {
	return s.items, int64(len(s.items)), nil
}

type memPlatforms struct {
	items []platforms.Platform
}

func (s *memPlatforms) FindByID(_ context.Context, id int64) (*platforms.Platform, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i], nil
		}
	}
	return nil, platforms.ErrNotFound
}

func (s *memPlatforms) Insert(_ context.Context, p *platforms.Platform) (*platforms.Platform, error) {
	stored := *p
	stored.ID = int64(len(s.items) + 1)
	s.items = append(s.items, stored)
	return &stored, nil
}

func (s *memPlatforms) List(_ context.Context, _ platforms.ListFilter, _ paging.Request) ([]platforms.Platform, int64, error) {
	return s.items, int64(len(s.items)), nil
}

type memBookings struct {
	items []bookings.Booking
}

func (s *memBookings) FindByID(_ context.Context, id int64) (*bookings.Booking, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i], nil
		}
	}
	return nil, bookings.ErrNotFound
}

func (s *memBookings) FindByPlatformCode(_ context.Context, code string) (*bookings.Booking, error) {
	for i := range s.items {
		if s.items[i].PlatformCode == code {
			return &s.items[i], nil
		}
	}
	return nil, bookings.ErrNotFound
}

func (s *memBookings) Insert(_ context.Context, b *bookings.Booking) (*bookings.Booking, error) {
	stored := *b
	stored.ID = int64(len(s.items) + 1)
	s.items = append(s.items, stored)
	return &stored, nil
}

func (s *memBookings) List(_ context.Context, _ bookings.ListFilter, _ paging.Request) ([]bookings.Booking, int64, error) {
	return s.items, int64(len(s.items)), nil
}

type memRegistries struct {
	bookings *memBookings
	items    []registries.Registry
	enqueued int
}

func (s *memRegistries) FindByID(_ context.Context, id int64) (*registries.Registry, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i], nil
		}
	}
	return nil, registries.ErrNotFound
}

func (s *memRegistries) List(_ context.Context, _ registries.ListFilter, _ paging.Request) ([]registries.Registry, int64, error) {
	return s.items, int64(len(s.items)), nil
}

func (s *memRegistries) InTx(ctx context.Context, fn func(ctx context.Context, tx registries.TxStore) error) error {
	snapshot := make([]registries.Registry, len(s.items))
	copy(snapshot, s.items)
	enqueued := s.enqueued
	if err := fn(ctx, s); err != nil {
		s.items = snapshot
		s.enqueued = enqueued
		return err
	}
	return nil
}

func (s *memRegistries) BookingByRef(ctx context.Context, ref registries.BookingRef) (*bookings.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, ref.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.SecurityCode != ref.SecurityCode {
		return nil, bookings.ErrNotFound
	}
	return booking, nil
}

func (s *memRegistries) InsertRegistry(_ context.Context, registry *registries.Registry) (*registries.Registry, error) {
	stored := *registry
	stored.ID = int64(len(s.items) + 1)
	s.items = append(s.items, stored)
	return &stored, nil
}

func (s *memRegistries) CountByBooking(_ context.Context, bookingID int64) (int64, error) {
	var count int64
	for i := range s.items {
		if s.items[i].BookingID == bookingID {
			count++
		}
	}
	return count, nil
}

func (s *memRegistries) EnqueueAccessLink(_ context.Context, _ *bookings.Booking) error {
	s.enqueued++
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *auth.TokenCodec) {
	t.Helper()
	return newTestRouterWithRateLimit(t, config.RateLimitConfig{PublicPerMinute: 1000, LoginPerMinute: 1000})
}

func newTestRouterWithRateLimit(t *testing.T, rateLimit config.RateLimitConfig) (http.Handler, *auth.TokenCodec) {
	t.Helper()

	hierarchy := auth.DefaultHierarchy()
	codec, err := auth.NewTokenCodec(routerTestKey, time.Hour, hierarchy)
	require.NoError(t, err)

	userHash, err := auth.HashPassword("user-password")
	require.NoError(t, err)
	adminHash, err := auth.HashPassword("admin-password")
	require.NoError(t, err)

	accountStore := &memAccounts{accounts: map[string]*accounts.Account{
		"user@example.com": {
			ID: 1, Email: "user@example.com", Name: "User",
			PasswordHash: userHash, Roles: []string{auth.RoleUser},
		},
		"admin@example.com": {
			ID: 2, Email: "admin@example.com", Name: "Admin",
			PasswordHash: adminHash, Roles: []string{auth.RoleAdmin},
		},
	}}
	bookingStore := &memBookings{items: []bookings.Booking{{
		ID:           1,
		PlatformCode: "HMABCDE123",
		SecurityCode: "7f9c24e8-3b12-4b8f-9022-6a1d4cdb1f6a",
		StartDate:    time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 7, 8, 0, 0, 0, 0, time.UTC),
		UserID:       1,
	}}}

	logger := zerolog.Nop()
	deps := Deps{
		Config: config.Config{
			Environment: "test",
			RateLimit:   rateLimit,
		},
		Logger:     logger,
		Codec:      codec,
		Hierarchy:  hierarchy,
		Accounts:   accounts.NewService(accountStore, codec, logger),
		Apartments: apartments.NewService(&memApartments{}, logger),
		Platforms:  platforms.NewService(&memPlatforms{}, logger),
		Bookings:   bookings.NewService(bookingStore, logger),
		Registries: registries.NewService(&memRegistries{bookings: bookingStore}, logger),
	}
	return NewRouter(deps), codec
}

func login(t *testing.T, router http.Handler, email, password string) string {
	t.Helper()
	body := `{"email":"` + email + `","password":"` + password + `"}`
	req := httptest.NewRequest("POST", "/api/v1/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code, rec.Body.String())

	header := rec.Header().Get("Authentication")
	require.True(t, strings.HasPrefix(header, "Bearer "))
	return strings.TrimPrefix(header, "Bearer ")
}

func TestLoginThenAccessUserGatedEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	token := login(t, router, "user@example.com", "user-password")

	req := httptest.NewRequest("GET", "/api/v1/apartments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code, rec.Body.String())
}

func TestAnonymousDeniedOnGatedEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/api/v1/apartments", "/api/v1/users", "/api/v1/bookings"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		require.Equal(t, 401, rec.Code, path)
	}
}

func TestUserDeniedOnAdminEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	token := login(t, router, "user@example.com", "user-password")

	req := httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, 403, rec.Code)
}

func TestAdminPassesUserGateThroughHierarchy(t *testing.T) {
	router, _ := newTestRouter(t)
	token := login(t, router, "admin@example.com", "admin-password")

	req := httptest.NewRequest("GET", "/api/v1/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
}

func TestExpiredTokenDistinctFromForgedToken(t *testing.T) {
	router, _ := newTestRouter(t)

	// Expired but correctly signed.
	claims := jwt.MapClaims{
		"sub":   "user@example.com",
		"roles": []string{auth.RoleUser},
		"iat":   time.Now().Add(-2 * time.Hour).Unix(),
		"exp":   time.Now().Add(-time.Hour).Unix(),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(routerTestKey)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/apartments", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, 401, rec.Code)
	var expiredBody map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &expiredBody))
	require.Contains(t, expiredBody["type"], "token-expired")

	// Signed with the wrong key: degrades to anonymous, generic 401.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).
		SignedString([]byte("another-key-another-key-another-key-another-key-another-key-...."))
	require.NoError(t, err)

	req = httptest.NewRequest("GET", "/api/v1/apartments", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, 401, rec.Code)
	var forgedBody map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forgedBody))
	require.NotEqual(t, expiredBody["type"], forgedBody["type"])
}

func TestSelfAccessOnUserRecord(t *testing.T) {
	router, _ := newTestRouter(t)
	token := login(t, router, "user@example.com", "user-password")

	// Own record: allowed without ADMIN.
	req := httptest.NewRequest("GET", "/api/v1/users/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code, rec.Body.String())

	// Someone else's record: forbidden.
	req = httptest.NewRequest("GET", "/api/v1/users/2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, 403, rec.Code)
}

func TestAnonymousRegistryCreation(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{
		"booking_id": 1,
		"security_code": "7f9c24e8-3b12-4b8f-9022-6a1d4cdb1f6a",
		"document_type": "passport",
		"document_number": "X1234567",
		"document_issued_date": "2020-05-01T00:00:00Z",
		"first_name": "Ana",
		"last_name": "Garcia",
		"birth_date": "1990-04-12T00:00:00Z",
		"gender": "F",
		"nationality": "ES",
		"country": "ES",
		"signature": "data:image/png;base64,aaaa"
	}`
	req := httptest.NewRequest("POST", "/api/v1/registries", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, 201, rec.Code, rec.Body.String())

	// Reads remain gated.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/registries", nil))
	require.Equal(t, 401, rec.Code)
}

func TestLoginTierLimitsBeforeEveryOtherRoute(t *testing.T) {
	router, _ := newTestRouterWithRateLimit(t, config.RateLimitConfig{
		PublicPerMinute: 1000,
		LoginPerMinute:  2,
	})

	// The login bucket runs dry after two attempts from the same client.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/api/v1/login", strings.NewReader(`{"email":"user@example.com","password":"wrong"}`))
		req.RemoteAddr = "192.0.2.50:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, 401, rec.Code, "attempt %d", i+1)
	}

	req := httptest.NewRequest("POST", "/api/v1/login", strings.NewReader(`{"email":"user@example.com","password":"wrong"}`))
	req.RemoteAddr = "192.0.2.50:4000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, 429, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Other routes stay on the roomy public bucket for the same client.
	req = httptest.NewRequest("GET", "/api/v1/apartments", nil)
	req.RemoteAddr = "192.0.2.50:4000"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, 401, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest("DELETE", "/api/v1/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, 405, rec.Code)
	require.Equal(t, "POST", rec.Header().Get("Allow"))
}
