package calc

import "errors"

// Client errors. The message is what the caller sees.
var (
	ErrInvalidNumber        = errors.New("invalid number")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrDivisionByZero       = errors.New("division by zero")
	ErrModuloByZero         = errors.New("modulo by zero")
	ErrNegativePowerOfZero  = errors.New("0.0 cannot be raised to a negative power")
)

// ErrInternal marks failures that must not be described to the client.
var ErrInternal = errors.New("internal calculation error")

// IsClientError reports whether err is one of the input errors above.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidNumber) ||
		errors.Is(err, ErrUnsupportedOperation) ||
		errors.Is(err, ErrDivisionByZero) ||
		errors.Is(err, ErrModuloByZero) ||
		errors.Is(err, ErrNegativePowerOfZero)
}
