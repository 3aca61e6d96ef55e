package krishi

import "errors"

// Sentinel errors for the krishi domain.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrRateLimited         = errors.New("rate limited")
	ErrBadRequest          = errors.New("bad request")
	ErrSessionExpired      = errors.New("session expired")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
