package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeExtractionFailure       = "EXTRACTION_FAILURE"
	CodeStorageFetch            = "STORAGE_FETCH_ERROR"
	CodePersistence             = "PERSISTENCE_ERROR"
	CodeProviderRateLimited     = "PROVIDER_RATE_LIMITED"
	CodeAllProvidersRateLimited = "ALL_PROVIDERS_RATE_LIMITED"
	CodeProvider                = "PROVIDER_ERROR"
	CodeValidation              = "VALIDATION_ERROR"
	CodeConfig                  = "CONFIG_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	ErrTransient    = errors.New("transient failure")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// NewValidationError builds a ValidationError-coded AppError.
func NewValidationError(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrValidation
	}
	return NewAppError(CodeValidation, message, cause)
}

// CodeOf returns the code of the outermost AppError in err's chain, or "".
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var ae *AppError
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Cause
	}
	return false
}

// IsRetryable reports whether err belongs to a class that local retry loops may repeat.
// Validation failures, missing records and rate limits are never retried locally.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case HasCode(err, CodeValidation),
		HasCode(err, CodeProviderRateLimited),
		HasCode(err, CodeAllProvidersRateLimited):
		return false
	case errors.Is(err, ErrNotFound):
		return false
	}
	return true
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToStatus maps an application error onto a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case HasCode(err, CodeValidation), errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case HasCode(err, CodeAllProvidersRateLimited), HasCode(err, CodeProviderRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	case HasCode(err, CodeProvider), HasCode(err, CodeStorageFetch):
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
