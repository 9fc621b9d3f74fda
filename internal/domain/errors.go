package domain

import "errors"

// Sentinel errors returned by the ledger and the financial intent motor.
// Callers use errors.Is against these rather than type-switching, matching
// the flat sentinel style used throughout the rest of the stack.
var (
	ErrInvalidAmount       = errors.New("domain: amount must be positive")
	ErrInvalidConcept      = errors.New("domain: concept must not be empty")
	ErrNotProvisional      = errors.New("domain: transaction is not provisional")
	ErrNotOwner            = errors.New("domain: transaction does not belong to owner")
	ErrMissingMerchant     = errors.New("domain: merchant is required to verify")
	ErrProviderError       = errors.New("domain: external provider failed")
	ErrStorageError        = errors.New("domain: ledger storage failed")
	ErrUnintelligibleAudio = errors.New("domain: audio produced no usable text")
	ErrTimeout             = errors.New("domain: deadline exceeded")
	ErrUserNotFound        = errors.New("domain: user not found")
)
