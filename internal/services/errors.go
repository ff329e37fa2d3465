// Package services defines the admin-facing business logic: statistics,
// registration listings, winner selection and code import.
//
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
// Translation into HTTP status codes happens in the handler layer.
package services

import "errors"

var (
	// ErrInvalidWinnerCount is returned when a draw asks for fewer than one
	// or more than the configured maximum winners.
	ErrInvalidWinnerCount = errors.New("winner count out of range")

	// ErrNoRegistrations is returned when a draw is requested but no code
	// has been claimed yet.
	ErrNoRegistrations = errors.New("no registrations to draw from")

	// ErrNoWinners is returned when notification is requested before any
	// winner was drawn.
	ErrNoWinners = errors.New("no winners drawn")

	// ErrNoCodes is returned when an import request carries no usable codes.
	ErrNoCodes = errors.New("no codes supplied")

	// ErrTooManyCodes is returned when an import exceeds the batch limit.
	ErrTooManyCodes = errors.New("too many codes in one request")
)
