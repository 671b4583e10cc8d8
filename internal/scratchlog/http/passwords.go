package http

import (
	"errors"
	"net/http"

	"github.com/scratchlog/scratchlog/internal/scratchlog/service"
	"github.com/scratchlog/scratchlog/pkg/httpx"
	"github.com/scratchlog/scratchlog/pkg/slogx"
)

type PasswordForgotHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP mails a password reset link. Accepts x-www-form-urlencoded:
// email. Always acknowledges so the endpoint doesn't reveal which addresses
// have accounts.
func (h *PasswordForgotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid form data",
		})
		return
	}

	email := r.FormValue("email")
	if email == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "email is required",
		})
		return
	}

	if err := h.AccountService.RequestPasswordReset(ctx, email); err != nil {
		log.Error("password reset request failed", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to process request",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, StatusResponse{Status: "accepted"})
}

type PasswordResetHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP finalizes a password reset. Accepts x-www-form-urlencoded:
// value (the mailed token), password. The token is consumed only when the
// new password is accepted.
func (h *PasswordResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid form data",
		})
		return
	}

	value := r.FormValue("value")
	password := r.FormValue("password")
	if value == "" || password == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "value and password are required",
		})
		return
	}

	if err := h.TokenService.FinalizePasswordReset(ctx, value, password); err != nil {
		switch {
		case errors.Is(err, service.ErrTokenNotFound),
			errors.Is(err, service.ErrTokenExpired),
			errors.Is(err, service.ErrWrongTokenType):
			writeTokenDenied(w)
		default:
			log.Error("password reset failed", "error", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to reset password",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
