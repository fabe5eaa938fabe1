package inventory

import "errors"

var (
	// ErrInvalid marks a document or edit that breaks a document invariant.
	ErrInvalid = errors.New("invalid inventory")
	// ErrNotFound is returned when a tap, type or glass index does not exist.
	ErrNotFound = errors.New("inventory entry not found")
	// ErrNoDocument is returned by stores that have never been written.
	ErrNoDocument = errors.New("inventory document not found")
)
