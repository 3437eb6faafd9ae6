package domain

import "errors"

var (
	// ErrChargeNotFound is returned when an external_id has no matching charge.
	ErrChargeNotFound = errors.New("charge not found")

	// ErrInvalidValue is returned when a charge's value is missing or non-positive.
	ErrInvalidValue = errors.New("invalid value")

	// ErrOracleUnavailable wraps a failure to reach the expiration oracle (C3).
	ErrOracleUnavailable = errors.New("expiration oracle unavailable")
)
