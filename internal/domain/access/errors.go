package access

import "errors"

var (
	// ErrInvalidCredentials indicates an unknown login or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccessDenied indicates the login may not view the requested company or roster.
	ErrAccessDenied = errors.New("access denied")
	// ErrUnknownCompany indicates a company key that isn't configured.
	ErrUnknownCompany = errors.New("unknown company")
)
