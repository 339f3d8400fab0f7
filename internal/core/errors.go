package core

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAmount          = errors.New("missing amount")
	ErrMissingTitle           = errors.New("missing title")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidAmountPrecision = errors.New("amount has more than 2 decimal digits")
	ErrInvalidLifetime        = errors.New("invalid lifetime")
	ErrInvalidDate            = errors.New("invalid date")
	ErrArithmeticOverflow     = errors.New("date arithmetic overflow")
)

// TokenError reports which input token a rule rejected.
type TokenError struct {
	Kind  string // "amount", "lifetime", "date"
	Token string
	Err   error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("unparseable %s token '%s': %v", e.Kind, e.Token, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err belongs to the validation family: the
// input was understood but is incomplete or not acceptable.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingAmount) ||
		errors.Is(err, ErrMissingTitle) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidAmountPrecision) ||
		errors.Is(err, ErrInvalidLifetime)
}

// IsInputError reports whether err was caused by the caller's input, as
// opposed to an infrastructure failure.
func IsInputError(err error) bool {
	return IsValidation(err) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrArithmeticOverflow)
}
