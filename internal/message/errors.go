package message

import (
	"errors"
	"fmt"
)

// DataErrorCode categorizes protocol data errors.
type DataErrorCode string

const (
	// ErrCodeDecode indicates bytes could not be decoded into a message.
	ErrCodeDecode DataErrorCode = "DECODE"

	// ErrCodeEncode indicates a message could not be encoded.
	ErrCodeEncode DataErrorCode = "ENCODE"

	// ErrCodeValidation indicates a decoded message violates its schema.
	ErrCodeValidation DataErrorCode = "VALIDATION"

	// ErrCodeUnknownKind indicates a type code or name with no schema.
	ErrCodeUnknownKind DataErrorCode = "UNKNOWN_KIND"
)

// DataError reports a malformed or unroutable payload. Inside the protocol
// stack these are always recovered locally: logged, and the offending
// payload dropped.
type DataError struct {
	Code    DataErrorCode
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *DataError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Kind != KindUnknown {
		msg = fmt.Sprintf("%s: %s (kind=%s)", e.Code, e.Message, e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *DataError) Unwrap() error {
	return e.Err
}

// IsDataError reports whether err is, or wraps, a DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// HasCode reports whether err is a DataError with the given code.
func HasCode(err error, code DataErrorCode) bool {
	var de *DataError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
