package service

import "errors"

var (
	// ErrTokenNotFound covers tokens that never existed, were already
	// consumed, or were swept away. Callers must not distinguish these
	// cases to the outside world.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired is returned when a token is found past its horizon.
	// Discovery deletes the token as a side effect.
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongTokenType is returned when a token is redeemed through a flow
	// that does not match its type.
	ErrWrongTokenType = errors.New("wrong token type")
	// ErrMetadataRequired is returned when a CHANGE_EMAIL token is issued
	// without the pending address.
	ErrMetadataRequired = errors.New("token metadata required")

	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email address already in use")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrInvalidSession     = errors.New("invalid session token")
)
