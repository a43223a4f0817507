package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/pamarcar/stays/internal/api/problem"
	"github.com/pamarcar/stays/internal/domain/registries"
)

type RegistriesHandler struct {
	Service *registries.Service
	Env     string
}

func NewRegistriesHandler(service *registries.Service, env string) *RegistriesHandler {
	return &RegistriesHandler{Service: service, Env: env}
}

type createRegistryRequest struct {
	BookingID    int64  `json:"booking_id" validate:"required,gt=0"`
	SecurityCode string `json:"security_code" validate:"required,uuid4"`

	DocumentType       string    `json:"document_type" validate:"required"`
	DocumentNumber     string    `json:"document_number" validate:"required"`
	DocumentIssuedDate time.Time `json:"document_issued_date" validate:"required"`
	DocumentSupport    string    `json:"document_support"`
	FirstName          string    `json:"first_name" validate:"required"`
	LastName           string    `json:"last_name" validate:"required"`
	BirthDate          time.Time `json:"birth_date" validate:"required"`
	Gender             string    `json:"gender" validate:"required"`
	Nationality        string    `json:"nationality" validate:"required"`
	Phone              string    `json:"phone"`
	Email              string    `json:"email" validate:"omitempty,email"`
	City               string    `json:"city"`
	Province           string    `json:"province"`
	Country            string    `json:"country" validate:"required"`
	PostalCode         string    `json:"postal_code"`
	Signature          string    `json:"signature" validate:"required"`
}

type registryResponse struct {
	ID             int64     `json:"id"`
	BookingID      int64     `json:"booking_id"`
	DocumentType   string    `json:"document_type"`
	DocumentNumber string    `json:"document_number"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	BirthDate      time.Time `json:"birth_date"`
	Nationality    string    `json:"nationality"`
	CreatedAt      time.Time `json:"created_at"`
}

func registryPayload(registry *registries.Registry) registryResponse {
	return registryResponse{
		ID:             registry.ID,
		BookingID:      registry.BookingID,
		DocumentType:   registry.DocumentType,
		DocumentNumber: registry.DocumentNumber,
		FirstName:      registry.FirstName,
		LastName:       registry.LastName,
		BirthDate:      registry.BirthDate,
		Nationality:    registry.Nationality,
		CreatedAt:      registry.CreatedAt,
	}
}

// Create registers a traveler against a booking. The caller is anonymous;
// the booking id plus security code pair is the whole credential. A wrong
// code and a missing booking produce the same response, so the endpoint
// cannot be used to probe which booking ids exist.
func (h *RegistriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRegistryRequest
	if !decodeValid(w, r, &req, h.Env) {
		return
	}

	ref := registries.BookingRef{BookingID: req.BookingID, SecurityCode: req.SecurityCode}
	registry := &registries.Registry{
		DocumentType:       req.DocumentType,
		DocumentNumber:     req.DocumentNumber,
		DocumentIssuedDate: req.DocumentIssuedDate,
		DocumentSupport:    req.DocumentSupport,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		BirthDate:          req.BirthDate,
		Gender:             req.Gender,
		Nationality:        req.Nationality,
		Phone:              req.Phone,
		Email:              req.Email,
		City:               req.City,
		Province:           req.Province,
		Country:            req.Country,
		PostalCode:         req.PostalCode,
		Signature:          req.Signature,
	}

	created, err := h.Service.Create(r.Context(), ref, registry)
	if err != nil {
		if errors.Is(err, registries.ErrBookingNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "No Data Found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, registryPayload(created))
}

func (h *RegistriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}

	registry, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, registries.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not Found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, registryPayload(registry))
}

var registrySortFields = map[string]string{
	"created_at": "created_at",
	"last_name":  "last_name",
}

func (h *RegistriesHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePaging(r, registrySortFields)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Request", err, h.Env)
		return
	}

	filter := registries.ListFilter{Email: r.URL.Query().Get("email")}
	if bookingID := r.URL.Query().Get("booking_id"); bookingID != "" {
		id, ok := queryID(w, r, "booking_id", bookingID, h.Env)
		if !ok {
			return
		}
		filter.BookingID = id
	}

	results, total, err := h.Service.List(r.Context(), filter, page)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	items := make([]any, 0, len(results))
	for i := range results {
		items = append(items, registryPayload(&results[i]))
	}
	writeJSON(w, http.StatusOK, newListResponse(items, total, page))
}
