package handlers

import (
	"errors"
	"net/http"

	"github.com/pamarcar/stays/internal/api/problem"
	"github.com/pamarcar/stays/internal/domain/platforms"
)

type PlatformsHandler struct {
	Service *platforms.Service
	Env     string
}

func NewPlatformsHandler(service *platforms.Service, env string) *PlatformsHandler {
	return &PlatformsHandler{Service: service, Env: env}
}

type createPlatformRequest struct {
	Name           string  `json:"name" validate:"required"`
	AppCommission  float64 `json:"app_commission" validate:"gte=0,lte=100"`
	BankCommission float64 `json:"bank_commission" validate:"gte=0,lte=100"`
	VAT            float64 `json:"vat" validate:"gte=0,lte=100"`
	Discount7Days  float64 `json:"discount_7_days" validate:"gte=0,lte=100"`
	Discount28Days float64 `json:"discount_28_days" validate:"gte=0,lte=100"`
	Comment        string  `json:"comment"`
}

type platformResponse struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	AppCommission  float64 `json:"app_commission"`
	BankCommission float64 `json:"bank_commission"`
	VAT            float64 `json:"vat"`
	Discount7Days  float64 `json:"discount_7_days"`
	Discount28Days float64 `json:"discount_28_days"`
	Comment        string  `json:"comment,omitempty"`
}

func platformPayload(platform *platforms.Platform) platformResponse {
	return platformResponse{
		ID:             platform.ID,
		Name:           platform.Name,
		AppCommission:  platform.AppCommission,
		BankCommission: platform.BankCommission,
		VAT:            platform.VAT,
		Discount7Days:  platform.Discount7Days,
		Discount28Days: platform.Discount28Days,
		Comment:        platform.Comment,
	}
}

func (h *PlatformsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPlatformRequest
	if !decodeValid(w, r, &req, h.Env) {
		return
	}

	created, err := h.Service.Create(r.Context(), &platforms.Platform{
		Name:           req.Name,
		AppCommission:  req.AppCommission,
		BankCommission: req.BankCommission,
		VAT:            req.VAT,
		Discount7Days:  req.Discount7Days,
		Discount28Days: req.Discount28Days,
		Comment:        req.Comment,
	})
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, platformPayload(created))
}

func (h *PlatformsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}

	platform, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, platforms.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not Found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, platformPayload(platform))
}

var platformSortFields = map[string]string{
	"name":       "name",
	"created_at": "created_at",
}

func (h *PlatformsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePaging(r, platformSortFields)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Request", err, h.Env)
		return
	}

	filter := platforms.ListFilter{Name: r.URL.Query().Get("name")}
	results, total, err := h.Service.List(r.Context(), filter, page)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	items := make([]any, 0, len(results))
	for i := range results {
		items = append(items, platformPayload(&results[i]))
	}
	writeJSON(w, http.StatusOK, newListResponse(items, total, page))
}
