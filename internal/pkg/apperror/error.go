package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnsupportedFileType    Kind = "UNSUPPORTED_FILE_TYPE"
	KindFileTooLarge           Kind = "FILE_TOO_LARGE"
	KindStoreConnectionFailure Kind = "STORE_CONNECTION_FAILURE"
	KindModelInvocationFailure Kind = "MODEL_INVOCATION_FAILURE"
	KindConversionFailure      Kind = "CONVERSION_FAILURE"
	KindValidation             Kind = "VALIDATION_FAILURE"
	KindNotFound               Kind = "NOT_FOUND"
)

// Error is the typed error carried from the core to the HTTP boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func UnsupportedFileType(ext string) *Error {
	return New(KindUnsupportedFileType, fmt.Sprintf("unsupported file type: %s", ext), nil)
}

func FileTooLarge(size, limit int64) *Error {
	return New(KindFileTooLarge, fmt.Sprintf("file too large: %d bytes exceeds limit of %d bytes", size, limit), nil)
}

func StoreConnectionFailure(op string, err error) *Error {
	return New(KindStoreConnectionFailure, fmt.Sprintf("store %s failed", op), err)
}

func ModelInvocationFailure(err error) *Error {
	return New(KindModelInvocationFailure, "model invocation failed", err)
}

// ConversionFailure names the file that could not be converted.
func ConversionFailure(filename string, err error) *Error {
	return New(KindConversionFailure, fmt.Sprintf("error processing file %s", filename), err)
}

func Validation(message string) *Error {
	return New(KindValidation, message, nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message, nil)
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
