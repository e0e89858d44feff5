package credentials

import "errors"

var (
	// ErrEmptyToken is returned when a renewal call yields an empty token.
	ErrEmptyToken = errors.New("renewal returned empty token")

	// ErrNoRenewer is returned when a Manager is used without a Renewer.
	ErrNoRenewer = errors.New("no token renewer configured")
)
