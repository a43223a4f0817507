package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/pamarcar/stays/internal/api/problem"
	"github.com/pamarcar/stays/internal/domain/accounts"
)

type UsersHandler struct {
	Service *accounts.Service
	Env     string
}

func NewUsersHandler(service *accounts.Service, env string) *UsersHandler {
	return &UsersHandler{Service: service, Env: env}
}

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

func userPayload(account *accounts.Account) userResponse {
	return userResponse{
		ID:        account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Roles:     account.Roles,
		CreatedAt: account.CreatedAt,
	}
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeValid(w, r, &req, h.Env) {
		return
	}

	created, err := h.Service.Create(r.Context(), accounts.CreateParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, accounts.ErrEmailTaken) {
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Email Already Taken", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, userPayload(created))
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", h.Env)
	if !ok {
		return
	}

	account, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not Found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, userPayload(account))
}

var userSortFields = map[string]string{
	"email":      "email",
	"name":       "name",
	"created_at": "created_at",
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := parsePaging(r, userSortFields)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Request", err, h.Env)
		return
	}

	filter := accounts.ListFilter{
		Email: r.URL.Query().Get("email"),
		Name:  r.URL.Query().Get("name"),
	}
	results, total, err := h.Service.List(r.Context(), filter, page)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	items := make([]any, 0, len(results))
	for i := range results {
		items = append(items, userPayload(&results[i]))
	}
	writeJSON(w, http.StatusOK, newListResponse(items, total, page))
}
