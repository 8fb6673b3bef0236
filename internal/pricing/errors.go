package pricing

import "errors"

var (
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrInvalidPricing   = errors.New("price and modifier must be greater than zero")
	ErrDiscountNotFound = errors.New("discount code not found")
	ErrDiscountInvalid  = errors.New("discount code is not valid")
	ErrEmptyBulkRequest = errors.New("bulk pricing request list is empty")
)
