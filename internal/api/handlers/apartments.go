package handlers

import (
	"errors"
	"net/http"

	"github.com/pamarcar/stays/internal/api/problem"
	"github.com/pamarcar/stays/internal/domain/apartments"
)

type ApartmentsHandler struct {
	Service *apartments.Service
	Env     string
}

func NewApartmentsHandler(service *apartments.Service, env string) *ApartmentsHandler {
	return &ApartmentsHandler{Service: service, Env: env}
}

type createApartmentRequest struct {
	Name    string `json:"name" validate:"required"`
	OwnerID int64  `json:"owner_id" validate:"required,gt=0"`
}

type apartmentResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	OwnerID int64  `json:"owner_id"`
}

func apartmentPayload(apartment *apartments.Apartment) apartmentResponse {
	return apartmentResponse{ID: apartment.ID, Name: apartment.Name, OwnerID: apartment.OwnerID}
}

func (h *ApartmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createApartmentRequest
	if !decodeValid(w, r, &req, h.Env) {
		return
	}

	created, err := h.Service.Create(r.Context(), req.Name, req.OwnerID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, apartmentPayload(created))
}

func (h *ApartmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}

	apartment, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, apartments.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not Found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, apartmentPayload(apartment))
}

var apartmentSortFields = map[string]string{
	"name":       "name",
	"created_at": "created_at",
}

func (h *ApartmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePaging(r, apartmentSortFields)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Request", err, h.Env)
		return
	}

	filter := apartments.ListFilter{Name: r.URL.Query().Get("name")}
	results, total, err := h.Service.List(r.Context(), filter, page)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	items := make([]any, 0, len(results))
	for i := range results {
		items = append(items, apartmentPayload(&results[i]))
	}
	writeJSON(w, http.StatusOK, newListResponse(items, total, page))
}
