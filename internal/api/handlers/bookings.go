package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/pamarcar/stays/internal/api/problem"
	"github.com/pamarcar/stays/internal/domain/bookings"
)

type BookingsHandler struct {
	Service *bookings.Service
	Env     string
}

func NewBookingsHandler(service *bookings.Service, env string) *BookingsHandler {
	return &BookingsHandler{Service: service, Env: env}
}

type createBookingRequest struct {
	PlatformCode string    `json:"platform_code" validate:"required"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	EndDate      time.Time `json:"end_date" validate:"required"`
	PriceDay     float64   `json:"price_day" validate:"gte=0"`
	Comment      string    `json:"comment"`
	PlatformID   int64     `json:"platform_id" validate:"required,gt=0"`
	ApartmentID  int64     `json:"apartment_id" validate:"required,gt=0"`
	UserID       int64     `json:"user_id" validate:"required,gt=0"`
}

type bookingResponse struct {
	ID           int64     `json:"id"`
	PlatformCode string    `json:"platform_code"`
	SecurityCode string    `json:"security_code,omitempty"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	PriceDay     float64   `json:"price_day"`
	Comment      string    `json:"comment,omitempty"`
	PlatformID   int64     `json:"platform_id"`
	ApartmentID  int64     `json:"apartment_id"`
	UserID       int64     `json:"user_id"`
}

// bookingPayload maps a booking to its response shape. The security code
// is a capability secret: it is included only right after creation, never
// on reads or listings.
func bookingPayload(booking *bookings.Booking, includeSecurityCode bool) bookingResponse {
	payload := bookingResponse{
		ID:           booking.ID,
		PlatformCode: booking.PlatformCode,
		StartDate:    booking.StartDate,
		EndDate:      booking.EndDate,
		PriceDay:     booking.PriceDay,
		Comment:      booking.Comment,
		PlatformID:   booking.PlatformID,
		ApartmentID:  booking.ApartmentID,
		UserID:       booking.UserID,
	}
	if includeSecurityCode {
		payload.SecurityCode = booking.SecurityCode
	}
	return payload
}

func (h *BookingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !decodeValid(w, r, &req, h.Env) {
		return
	}

	created, err := h.Service.Create(r.Context(), bookings.CreateParams{
		PlatformCode: req.PlatformCode,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		PriceDay:     req.PriceDay,
		Comment:      req.Comment,
		PlatformID:   req.PlatformID,
		ApartmentID:  req.ApartmentID,
		UserID:       req.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrInvalidDateRange):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Date Range", err, h.Env)
		case errors.Is(err, bookings.ErrPlatformCodeTaken):
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Platform Code Already Used", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusCreated, bookingPayload(created, true))
}

func (h *BookingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}

	booking, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, bookings.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not Found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, bookingPayload(booking, false))
}

var bookingSortFields = map[string]string{
	"platform_code": "platform_code",
	"start_date":    "start_date",
	"end_date":      "end_date",
	"created_at":    "created_at",
}

func (h *BookingsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePaging(r, bookingSortFields)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Request", err, h.Env)
		return
	}

	filter := bookings.ListFilter{PlatformCode: r.URL.Query().Get("platform_code")}
	results, total, err := h.Service.List(r.Context(), filter, page)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	items := make([]any, 0, len(results))
	for i := range results {
		items = append(items, bookingPayload(&results[i], false))
	}
	writeJSON(w, http.StatusOK, newListResponse(items, total, page))
}
