package models

import "errors"

// Domain errors. Repositories and services wrap these with context; handlers map them to status codes.
var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrConflict             = errors.New("already exists")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	ErrPositionOccupied     = errors.New("position occupied by a different batch")
	ErrCapacityExceeded     = errors.New("capacity exceeded")
	ErrInvalidTransition    = errors.New("invalid state transition")
	ErrPaymentTimeout       = errors.New("payment confirmation timed out")
	ErrPaymentFailed        = errors.New("payment failed")
	ErrBusy                 = errors.New("resource busy, try again")
)
