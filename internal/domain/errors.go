package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyPaid       = errors.New("payment already settled")
	ErrPaymentMissing    = errors.New("payment information not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)
