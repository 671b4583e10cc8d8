package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/scratchlog/scratchlog/internal/scratchlog/service"
	"github.com/scratchlog/scratchlog/pkg/httpx"
	"github.com/scratchlog/scratchlog/pkg/slogx"
)

type EmailChangeHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP starts an email change for the authenticated user. Requires a
// Bearer session token; accepts x-www-form-urlencoded: email (the new
// address). The change only applies once the confirmation token mailed to
// the new address is redeemed.
func (h *EmailChangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	authz := r.Header.Get("Authorization")
	sessionToken, ok := strings.CutPrefix(authz, "Bearer ")
	if !ok || sessionToken == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:            "invalid_session",
			ErrorDescription: "A valid session token is required",
		})
		return
	}

	userID, _, err := h.AccountService.VerifySession(ctx, sessionToken)
	if err != nil {
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:            "invalid_session",
			ErrorDescription: "A valid session token is required",
		})
		return
	}

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

	if err := h.AccountService.RequestEmailChange(ctx, userID, email); err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
				Error:            "email_taken",
				ErrorDescription: "Email address is already in use",
			})
		default:
			log.Error("email change request failed", "error", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to process request",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, StatusResponse{Status: "accepted"})
}
