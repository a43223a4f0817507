package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pamarcar/stays/internal/domain/bookings"
	"github.com/pamarcar/stays/internal/domain/paging"
)

type fakeBookingStore struct {
	bookings []bookings.Booking
}

func (s *fakeBookingStore) FindByID(_ context.Context, id int64) (*bookings.Booking, error) {
	for i := range s.bookings {
		if s.bookings[i].ID == id {
			return &s.bookings[i], nil
		}
	}
	return nil, bookings.ErrNotFound
}

func (s *fakeBookingStore) FindByPlatformCode(_ context.Context, code string) (*bookings.Booking, error) {
	for i := range s.bookings {
		if s.bookings[i].PlatformCode == code {
			return &s.bookings[i], nil
		}
	}
	return nil, bookings.ErrNotFound
}

func (s *fakeBookingStore) Insert(_ context.Context, booking *bookings.Booking) (*bookings.Booking, error) {
	stored := *booking
	stored.ID = int64(len(s.bookings) + 1)
	s.bookings = append(s.bookings, stored)
	return &stored, nil
}

func (s *fakeBookingStore) List(_ context.Context, _ bookings.ListFilter, _ paging.Request) ([]bookings.Booking, int64, error) {
	return s.bookings, int64(len(s.bookings)), nil
}

func newBookingsFixture() (*BookingsHandler, *fakeBookingStore) {
	store := &fakeBookingStore{}
	service := bookings.NewService(store, zerolog.Nop())
	return NewBookingsHandler(service, "test"), store
}

const bookingBody = `{
	"platform_code": "HMABCDE123",
	"start_date": "2026-07-01T00:00:00Z",
	"end_date": "2026-07-08T00:00:00Z",
	"price_day": 85.5,
	"platform_id": 1,
	"apartment_id": 2,
	"user_id": 3
}`

func TestCreateBookingReturnsSecurityCode(t *testing.T) {
	handler, _ := newBookingsFixture()

	req := httptest.NewRequest("POST", "/api/v1/bookings", strings.NewReader(bookingBody))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, 201, rec.Code, rec.Body.String())

	var resp bookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SecurityCode, "create must expose the generated security code")
}

func TestGetBookingOmitsSecurityCode(t *testing.T) {
	handler, _ := newBookingsFixture()

	rec := httptest.NewRecorder()
	handler.Create(rec, httptest.NewRequest("POST", "/api/v1/bookings", strings.NewReader(bookingBody)))
	require.Equal(t, 201, rec.Code)

	mux := newTestMux("/api/v1/bookings/{id}", handler.Get)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/bookings/1", nil))

	require.Equal(t, 200, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	_, present := body["security_code"]
	require.False(t, present, "reads must not leak the security code")
}

func TestCreateBookingDuplicatePlatformCode(t *testing.T) {
	handler, _ := newBookingsFixture()

	rec := httptest.NewRecorder()
	handler.Create(rec, httptest.NewRequest("POST", "/api/v1/bookings", strings.NewReader(bookingBody)))
	require.Equal(t, 201, rec.Code)

	rec = httptest.NewRecorder()
	handler.Create(rec, httptest.NewRequest("POST", "/api/v1/bookings", strings.NewReader(bookingBody)))
	require.Equal(t, 409, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body["type"], "conflict")
}

func TestCreateBookingInvertedDates(t *testing.T) {
	handler, _ := newBookingsFixture()

	body := strings.Replace(bookingBody, `"end_date": "2026-07-08T00:00:00Z"`, `"end_date": "2026-06-08T00:00:00Z"`, 1)
	rec := httptest.NewRecorder()
	handler.Create(rec, httptest.NewRequest("POST", "/api/v1/bookings", strings.NewReader(body)))
	require.Equal(t, 400, rec.Code)
}

func TestGetBookingInvalidID(t *testing.T) {
	handler, _ := newBookingsFixture()

	mux := newTestMux("/api/v1/bookings/{id}", handler.Get)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/bookings/abc", nil))

	require.Equal(t, 400, rec.Code)
}
