package http

import (
	"errors"
	"net/http"

	"github.com/scratchlog/scratchlog/internal/scratchlog/domain"
	"github.com/scratchlog/scratchlog/internal/scratchlog/service"
	"github.com/scratchlog/scratchlog/pkg/httpx"
	"github.com/scratchlog/scratchlog/pkg/slogx"
)

type RegisterHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP creates a deactivated account and mails its activation link.
// Accepts x-www-form-urlencoded: username, email, password.
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid form data",
		})
		return
	}

	username := r.FormValue("username")
	email := r.FormValue("email")
	password := r.FormValue("password")

	if username == "" || email == "" || password == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "username, email and password are required",
		})
		return
	}

	user, err := h.AccountService.Register(ctx, username, email, password, domain.RoleParticipant)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
				Error:            "username_taken",
				ErrorDescription: "Username is already in use",
			})
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteJSON(w, http.StatusConflict, ErrorResponse{
				Error:            "email_taken",
				ErrorDescription: "Email address is already in use",
			})
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:            "invalid_request",
				ErrorDescription: "username, email and password are required",
			})
		default:
			log.Error("registration failed", "error", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to register user",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, RegisterResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

type LoginHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP authenticates a username/password pair and returns a session
// token. Accepts x-www-form-urlencoded: username, password.
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "Invalid form data",
		})
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "username and password are required",
		})
		return
	}

	session, err := h.AccountService.Authenticate(ctx, username, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:            "invalid_credentials",
				ErrorDescription: "Username or password is incorrect",
			})
		case errors.Is(err, service.ErrAccountDeactivated):
			httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
				Error:            "account_deactivated",
				ErrorDescription: "Account is deactivated",
			})
		default:
			log.Error("login failed", "error", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:            "server_error",
				ErrorDescription: "Failed to authenticate",
			})
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, LoginResponse{
		UserID:    session.UserID,
		Username:  session.Username,
		Role:      session.Role.String(),
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Unix(),
	})
}
