package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrSelfDealing       = fmt.Errorf("%w: cannot add own item to cart", ErrForbidden)
	ErrAlreadyInCart     = errors.New("item already in cart")
	ErrInvalidOTP        = errors.New("invalid otp")
	ErrInvalidItem       = errors.New("invalid item")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidProfile    = errors.New("invalid profile")
	ErrOrderNotCompleted = errors.New("order not completed")
	ErrUnauthenticated   = errors.New("unauthenticated")
)
