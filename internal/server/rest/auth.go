package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/contactsapi/internal/common"
	"github.com/dmitrijs2005/contactsapi/internal/server/models"
	"github.com/dmitrijs2005/contactsapi/internal/server/ratelimit"
	"github.com/go-chi/chi/v5"
)

const (
	msgResetRequested = "If an account with this email exists, a password reset link has been sent"
	msgPasswordReset  = "Password has been reset successfully"
	msgEmailVerified  = "Email verified successfully"
)

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	user, err := a.auth.Register(r.Context(), req.UserName, req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err, when(common.ErrorAlreadyExists, http.StatusConflict, "Email already registered"))
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	token, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err, when(common.ErrorUnauthorized, http.StatusUnauthorized, "Incorrect email or password"))
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (a *API) verifyEmail(w http.ResponseWriter, r *http.Request) {
	_, err := a.auth.VerifyEmail(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		a.fail(w, r, err, when(common.ErrorNotFound, http.StatusNotFound, "Invalid verification token"))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgEmailVerified})
}

func (a *API) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	if err := a.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		a.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgResetRequested})
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordReset
	if err := decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	err := a.auth.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password)
	if err != nil {
		a.fail(w, r, err, when(common.ErrorNotFound, http.StatusNotFound, "Invalid reset token"))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgPasswordReset})
}

// me is rate limited per caller: the user id when the token resolves, the
// peer address otherwise. The limit applies before authentication fails.
func (a *API) me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		user    *models.User
		authErr error
	)
	if token := bearerToken(r); token != "" {
		user, authErr = a.auth.ResolveCurrentUser(ctx, token)
	}

	key := ratelimit.AddrKey(remoteHost(r))
	if user != nil {
		key = ratelimit.UserKey(user.ID)
	}

	if err := a.meLimiter.Allow(ctx, key); err != nil {
		if !errors.Is(err, ratelimit.ErrUnavailable) {
			a.fail(w, r, err)
			return
		}
		a.logger.Warn(ctx, "rate limiter unavailable, allowing request", "error", err)
	}

	switch {
	case authErr != nil:
		a.fail(w, r, authErr)
	case user == nil:
		writeDetail(w, http.StatusUnauthorized, msgNotAuthenticated)
	default:
		writeJSON(w, http.StatusOK, toUserResponse(user))
	}
}
