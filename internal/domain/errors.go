package domain

import "github.com/go-faster/errors"

// Errors reported by the store core. Operations wrap these with context,
// so callers should match them with errors.Is.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateCode     = errors.New("product with this code already exists")
	ErrDuplicateID       = errors.New("customer with this id already exists")
	ErrNotFound          = errors.New("not found")
	ErrPaymentDeclined   = errors.New("payment declined")
)
