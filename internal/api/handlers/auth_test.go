package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pamarcar/stays/internal/auth"
	"github.com/pamarcar/stays/internal/domain/accounts"
	"github.com/pamarcar/stays/internal/domain/paging"
)

type fakeAccountStore struct {
	byEmail map[string]*accounts.Account
}

func (s *fakeAccountStore) FindByEmail(_ context.Context, email string) (*accounts.Account, error) {
	if account, ok := s.byEmail[email]; ok {
		return account, nil
	}
	return nil, accounts.ErrNotFound
}

func (s *fakeAccountStore) FindByID(_ context.Context, id int64) (*accounts.Account, error) {
	for _, account := range s.byEmail {
		if account.ID == id {
			return account, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (s *fakeAccountStore) Insert(_ context.Context, account *accounts.Account) (*accounts.Account, error) {
	if _, ok := s.byEmail[account.Email]; ok {
		return nil, accounts.ErrEmailTaken
	}
	stored := *account
	stored.ID = int64(len(s.byEmail) + 1)
	s.byEmail[account.Email] = &stored
	return &stored, nil
}

func (s *fakeAccountStore) List(_ context.Context, _ accounts.ListFilter, _ paging.Request) ([]accounts.Account, int64, error) {
	out := make([]accounts.Account, 0, len(s.byEmail))
	for _, account := range s.byEmail {
		out = append(out, *account)
	}
	return out, int64(len(out)), nil
}

func newAuthFixture(t *testing.T) (*AuthHandler, *auth.TokenCodec) {
	t.Helper()

	key := []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	codec, err := auth.NewTokenCodec(key, time.Hour, auth.DefaultHierarchy())
	require.NoError(t, err)

	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)

	store := &fakeAccountStore{byEmail: map[string]*accounts.Account{
		"ana@example.com": {
			ID:           1,
			Email:        "ana@example.com",
			Name:         "Ana",
			PasswordHash: hash,
			Roles:        []string{auth.RoleUser},
		},
	}}
	service := accounts.NewService(store, codec, zerolog.Nop())
	return NewAuthHandler(service, nil, "test"), codec
}

func TestLoginSuccessReturnsBearerHeader(t *testing.T) {
	handler, codec := newAuthFixture(t)

	body := `{"email":"ana@example.com","password":"correct-horse"}`
	req := httptest.NewRequest("POST", "/api/v1/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	require.Equal(t, 200, rec.Code)

	header := rec.Header().Get("Authentication")
	require.True(t, strings.HasPrefix(header, "Bearer "), "Authentication header = %q", header)

	principal, err := codec.Verify(strings.TrimPrefix(header, "Bearer "))
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", principal.Subject)
	require.Equal(t, []string{auth.RoleUser}, principal.Roles)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Ana", resp.Name)
}

func TestLoginWrongPasswordIs401(t *testing.T) {
	handler, _ := newAuthFixture(t)

	body := `{"email":"ana@example.com","password":"wrong"}`
	req := httptest.NewRequest("POST", "/api/v1/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	require.Equal(t, 401, rec.Code)
	require.Empty(t, rec.Header().Get("Authentication"))
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestLoginUnknownEmailSameResponseAsWrongPassword(t *testing.T) {
	handler, _ := newAuthFixture(t)

	wrongPassword := httptest.NewRecorder()
	handler.Login(wrongPassword, httptest.NewRequest("POST", "/api/v1/login",
		strings.NewReader(`{"email":"ana@example.com","password":"wrong"}`)))

	unknownEmail := httptest.NewRecorder()
	handler.Login(unknownEmail, httptest.NewRequest("POST", "/api/v1/login",
		strings.NewReader(`{"email":"ghost@example.com","password":"wrong"}`)))

	require.Equal(t, wrongPassword.Code, unknownEmail.Code)

	var a, b map[string]any
	require.NoError(t, json.Unmarshal(wrongPassword.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(unknownEmail.Body.Bytes(), &b))
	require.Equal(t, a["type"], b["type"])
	require.Equal(t, a["title"], b["title"])
}

func TestLoginMissingFieldsIs400(t *testing.T) {
	handler, _ := newAuthFixture(t)

	req := httptest.NewRequest("POST", "/api/v1/login", strings.NewReader(`{"email":"not-an-email"}`))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	require.Equal(t, 400, rec.Code)
}
