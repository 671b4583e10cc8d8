package http

import (
	"errors"
	"net/http"

	"github.com/scratchlog/scratchlog/internal/scratchlog/service"
	"github.com/scratchlog/scratchlog/pkg/httpx"
	"github.com/scratchlog/scratchlog/pkg/slogx"
)

type TokenRedeemHandler struct {
	TokenService *service.TokenService
}

// writeTokenDenied is the single denial shape for every redemption failure.
// Unknown, expired, claimed, and wrong-type tokens are indistinguishable to
// the caller.
func writeTokenDenied(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:            "invalid_token",
		ErrorDescription: "Token is invalid or expired",
	})
}

// ServeHTTP redeems a token from its mailed link: GET /v1/tokens/redeem?value=...
// FORGOT_PASSWORD tokens are only validated here; the caller then submits
// the new password to the password endpoint.
func (h *TokenRedeemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	value := r.URL.Query().Get("value")
	if value == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "value is required",
		})
		return
	}

	// Password reset is two-phase. Probe for it first so this endpoint can
	// serve both link kinds.
	if token, err := h.TokenService.CheckPasswordToken(ctx, value); err == nil {
		httpx.WriteJSON(w, http.StatusOK, RedeemResponse{
			Type:   token.Type.String(),
			UserID: token.UserID,
		})
		return
	} else if !errors.Is(err, service.ErrWrongTokenType) {
		writeTokenDenied(w)
		return
	}

	outcome, err := h.TokenService.Consume(ctx, value)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenNotFound),
			errors.Is(err, service.ErrTokenExpired),
			errors.Is(err, service.ErrWrongTokenType):
			writeTokenDenied(w)
		default:
			log.Error("token redemption failed", "error", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to redeem token",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, RedeemResponse{
		Type:   outcome.Type.String(),
		UserID: outcome.UserID,
	})
}
