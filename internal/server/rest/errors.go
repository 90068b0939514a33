package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/go-playground/validator/v10"
)

const (
	msgInternal         = "Internal server error"
	msgNotAuthenticated = "Not authenticated"
	msgBadCredentials   = "Could not validate credentials"
	msgRateLimited      = "Rate limit exceeded. Please try again later."
)

// errorResponse is the body of every error except 429.
type errorResponse struct {
	Detail any `json:"detail"`
}

// errCase overrides the default status and detail for one sentinel.
type errCase struct {
	target error
	status int
	detail string
}

func when(target error, status int, detail string) errCase {
	return errCase{target: target, status: status, detail: detail}
}

// defaultCases maps service sentinels to HTTP. Order matters: the first
// match wins.
var defaultCases = []errCase{
	when(common.ErrorNotFound, http.StatusNotFound, "Not found"),
	when(common.ErrorAlreadyExists, http.StatusConflict, "Already exists"),
	when(common.ErrEmailNotVerified, http.StatusUnauthorized, "Email not verified"),
	when(common.ErrorUnauthorized, http.StatusUnauthorized, msgBadCredentials),
	when(common.ErrInvalidToken, http.StatusUnauthorized, msgBadCredentials),
	when(common.ErrTokenExpired, http.StatusUnauthorized, msgBadCredentials),
	when(common.ErrorForbidden, http.StatusForbidden, "Forbidden"),
	when(common.ErrEmailAlreadyVerified, http.StatusBadRequest, "Email already verified"),
	when(common.ErrResetTokenExpired, http.StatusBadRequest, "Reset token has expired"),
	when(common.ErrInvalidImage, http.StatusBadRequest, "File must be an image"),
	when(common.ErrInvalidRole, http.StatusBadRequest, "Invalid role"),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}

// fail writes err as an HTTP error. cases are tried before the defaults.
// Anything unmatched is logged and reported as a bare 500.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error, cases ...errCase) {

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		writeDetail(w, http.StatusUnprocessableEntity, FormatValidationErrors(ve))
		return
	}

	if errors.Is(err, common.ErrorValidation) {
		msg := strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
		writeDetail(w, http.StatusUnprocessableEntity, msg)
		return
	}

	if errors.Is(err, common.ErrRateLimited) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": msgRateLimited})
		return
	}

	for _, c := range append(cases, defaultCases...) {
		if errors.Is(err, c.target) {
			writeDetail(w, c.status, c.detail)
			return
		}
	}

	a.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeDetail(w, http.StatusInternalServerError, msgInternal)
}
