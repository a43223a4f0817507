package handlers

import (
	"errors"
	"net/http"

	"github.com/pamarcar/stays/internal/api/problem"
	"github.com/pamarcar/stays/internal/audit"
	"github.com/pamarcar/stays/internal/domain/accounts"
	"github.com/pamarcar/stays/internal/metrics"
)

type AuthHandler struct {
	Service *accounts.Service
	Audit   *audit.Logger
	Env     string
}

func NewAuthHandler(service *accounts.Service, auditLogger *audit.Logger, env string) *AuthHandler {
	return &AuthHandler{Service: service, Audit: auditLogger, Env: env}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// Login exchanges credentials for a bearer token. The token travels in
// the Authentication response header; the body carries the account
// summary for the client UI.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", nil, h.Env)
		return
	}

	var req loginRequest
	if !decodeValid(w, r, &req, h.Env) {
		metrics.LoginsTotal.WithLabelValues("invalid_request").Inc()
		return
	}

	token, account, err := h.Service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			if h.Audit != nil {
				h.Audit.LoginFailure(r, req.Email, "invalid credentials")
			}
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeInvalidCredentials, "Invalid Credentials", err, h.Env)
			return
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, h.Env)
		return
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	if h.Audit != nil {
		h.Audit.LoginSuccess(r, account.Email)
	}

	w.Header().Set("Authentication", "Bearer "+token)
	writeJSON(w, http.StatusOK, loginResponse{
		Email: account.Email,
		Name:  account.Name,
		Roles: account.Roles,
	})
}
