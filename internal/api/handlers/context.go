package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pamarcar/stays/internal/api/problem"
	"github.com/pamarcar/stays/internal/domain/paging"
)

var validate = validator.New()

// FilterError represents a validation error for a specific field.
type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	return e.Field + ": " + e.Message
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return r.PathValue(key)
}

// pathID extracts and validates a numeric id from a request path
// parameter. On failure a validation problem is written and ok is false.
func pathID(w http.ResponseWriter, r *http.Request, paramName, env string) (int64, bool) {
	raw := strings.TrimSpace(pathParam(r, paramName))
	if raw == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Request", FilterError{Field: paramName, Message: "missing"}, env)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Request", FilterError{Field: paramName, Message: "must be a positive integer"}, env)
		return 0, false
	}
	return id, true
}

// queryID validates a numeric id taken from a query parameter.
func queryID(w http.ResponseWriter, r *http.Request, paramName, raw, env string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Request", FilterError{Field: paramName, Message: "must be a positive integer"}, env)
		return 0, false
	}
	return id, true
}

// decodeValid decodes the JSON body into dst and runs struct validation.
// On failure a validation problem with per-field messages is written and
// false is returned.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any, env string) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid Request", err, env)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Server Error", err, env)
			return false
		}
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Validation Failed", err, env,
			problem.WithErrors(validationErrors(err)))
		return false
	}
	return true
}

func validationErrors(err error) map[string]interface{} {
	out := make(map[string]interface{})
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			field := strings.ToLower(fe.Field())
			if fe.Param() != "" {
				out[field] = fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
			} else {
				out[field] = fmt.Sprintf("failed %s", fe.Tag())
			}
		}
	}
	return out
}

// parsePaging reads page, size and repeated sort parameters from the
// query string. sortable whitelists the exposed sort fields.
func parsePaging(r *http.Request, sortable map[string]string) (paging.Request, error) {
	query := r.URL.Query()
	page := paging.Request{}

	if raw := query.Get("page"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return paging.Request{}, FilterError{Field: "page", Message: "must be a non-negative integer"}
		}
		page.Page = value
	}
	if raw := query.Get("size"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			return paging.Request{}, FilterError{Field: "size", Message: "must be a positive integer"}
		}
		page.Size = value
	}

	sorts, err := paging.ParseSort(query["sort"], sortable)
	if err != nil {
		return paging.Request{}, FilterError{Field: "sort", Message: err.Error()}
	}
	page.Sort = sorts

	return page, nil
}

type listResponse struct {
	Items []any `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Size  int   `json:"size"`
}

func newListResponse(items []any, total int64, page paging.Request) listResponse {
	return listResponse{Items: items, Total: total, Page: page.Page, Size: page.Limit()}
}
