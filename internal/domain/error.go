package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid transaction execution context")

	// Checkout / payment errors
	ErrOrderNotPending    = errors.New("order is not pending")
	ErrUnknownPromoCode   = errors.New("unknown promo code")
	ErrPromoAlreadyUsed   = errors.New("promo code already applied")
	ErrInvalidTransition  = errors.New("invalid flow transition")
	ErrTemplateNotFound   = errors.New("email template not found or inactive")
	ErrInvalidSignature   = errors.New("webhook signature verification failed")
	ErrUnhandledEventType = errors.New("unhandled webhook event type")
)
