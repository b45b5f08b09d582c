package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain errors so adapters can map them to transport codes
type ErrorKind string

const (
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindInvalidRequest ErrorKind = "INVALID_REQUEST"
	KindValidation     ErrorKind = "VALIDATION"
)

// Error is a per-request failure surfaced directly to the caller
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NotFoundf reports an unknown id or symbol, or a missing position
func NotFoundf(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidRequestf reports a request that cannot be honoured as asked
func InvalidRequestf(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// Validationf reports a field constraint violation
func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a domain error anywhere in err's chain, or "" otherwise
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsInvalidRequest(err error) bool {
	return KindOf(err) == KindInvalidRequest
}

func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// InsufficientPosition reports a sale larger than the units currently held
func InsufficientPosition(symbol, available, requested string) error {
	return InvalidRequestf("insufficient amount of %s to sell: available %s, requested %s", symbol, available, requested)
}
