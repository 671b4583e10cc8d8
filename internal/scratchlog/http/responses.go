package http

// ErrorResponse is the uniform error payload. Token redemption failures all
// share one description so callers can't probe which values exist.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// RegisterResponse is returned after a successful signup. The account stays
// deactivated until the mailed activation token is redeemed.
type RegisterResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginResponse carries the session token for an authenticated user.
type LoginResponse struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// RedeemResponse reports what effect a redeemed token applied.
type RedeemResponse struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// StatusResponse acknowledges an accepted request with no further payload.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
