// Package apperr holds the error taxonomy of the admission engine.
//
// Every service returns *Error values built from the sentinels below, so
// callers can branch with errors.Is(err, apperr.ErrLocked) and the HTTP edge
// can render a stable error_code without inspecting messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeBadRequest           Code = "BAD_REQUEST"
	CodeDuplicateApplication Code = "DUPLICATE_APPLICATION"
	CodeDuplicateOffer       Code = "DUPLICATE_OFFER"
	CodeAlreadyPaid          Code = "ALREADY_PAID"
	CodeLocked               Code = "LOCKED"
	CodeNotEligible          Code = "NOT_ELIGIBLE"
	CodeForbidden            Code = "FORBIDDEN"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeNotFound             Code = "NOT_FOUND"
	CodeWindowClosed         Code = "WINDOW_CLOSED"
	CodeSessionInUse         Code = "SESSION_IN_USE"
	CodeConflict             Code = "CONFLICT"
	CodeGatewayUnavailable   Code = "GATEWAY_UNAVAILABLE"
	CodeVerificationFailed   Code = "VERIFICATION_FAILED"
	CodePaymentPending       Code = "PAYMENT_PENDING"
	CodeInvalidSignature     Code = "INVALID_SIGNATURE"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error is the single error type crossing service boundaries.
type Error struct {
	Code    Code
	Status  int
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so a freshly built error still matches its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Retryable reports whether the caller may repeat the same request.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeGatewayUnavailable, CodeConflict, CodePaymentPending:
		return true
	}
	return false
}

var (
	ErrValidation           = &Error{Code: CodeValidation, Status: http.StatusUnprocessableEntity, Message: "validation failed"}
	ErrBadRequest           = &Error{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: "bad request"}
	ErrDuplicateApplication = &Error{Code: CodeDuplicateApplication, Status: http.StatusConflict, Message: "an application already exists for this session"}
	ErrDuplicateOffer       = &Error{Code: CodeDuplicateOffer, Status: http.StatusConflict, Message: "an admission offer already exists for this application"}
	ErrAlreadyPaid          = &Error{Code: CodeAlreadyPaid, Status: http.StatusBadRequest, Message: "this fee has already been paid"}
	ErrLocked               = &Error{Code: CodeLocked, Status: http.StatusForbidden, Message: "application is locked because the form fee has been paid"}
	ErrNotEligible          = &Error{Code: CodeNotEligible, Status: http.StatusBadRequest, Message: "operation not allowed in the current state"}
	ErrForbidden            = &Error{Code: CodeForbidden, Status: http.StatusForbidden, Message: "you do not have access to this resource"}
	ErrUnauthorized         = &Error{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: "unauthorized"}
	ErrNotFound             = &Error{Code: CodeNotFound, Status: http.StatusNotFound, Message: "resource not found"}
	ErrWindowClosed         = &Error{Code: CodeWindowClosed, Status: http.StatusBadRequest, Message: "the application window for this program is closed"}
	ErrSessionInUse         = &Error{Code: CodeSessionInUse, Status: http.StatusConflict, Message: "admission session is referenced by applications"}
	ErrConflict             = &Error{Code: CodeConflict, Status: http.StatusConflict, Message: "conflicting concurrent update, retry"}
	ErrGatewayUnavailable   = &Error{Code: CodeGatewayUnavailable, Status: http.StatusServiceUnavailable, Message: "payment gateway unavailable, retry later"}
	ErrVerificationFailed   = &Error{Code: CodeVerificationFailed, Status: http.StatusPaymentRequired, Message: "payment verification failed"}
	ErrPaymentPending       = &Error{Code: CodePaymentPending, Status: http.StatusConflict, Message: "payment has not been completed yet"}
	ErrInvalidSignature     = &Error{Code: CodeInvalidSignature, Status: http.StatusUnauthorized, Message: "invalid webhook signature"}
	ErrInternal             = &Error{Code: CodeInternal, Status: http.StatusInternalServerError, Message: "internal server error"}
)

// New copies base with a custom message.
func New(base *Error, message string) *Error {
	return &Error{Code: base.Code, Status: base.Status, Message: message}
}

// Newf is New with formatting.
func Newf(base *Error, format string, args ...any) *Error {
	return New(base, fmt.Sprintf(format, args...))
}

// Wrap copies base, keeping err as the cause.
func Wrap(base *Error, message string, err error) *Error {
	e := New(base, message)
	e.Err = err
	return e
}

// Internal wraps an unexpected failure. The message is for logs only; the
// HTTP edge replaces it with a generic text.
func Internal(message string, err error) *Error {
	return Wrap(ErrInternal, message, err)
}

// Validation builds a field-by-field validation error.
func Validation(fields map[string][]string) *Error {
	e := New(ErrValidation, ErrValidation.Message)
	e.Fields = fields
	return e
}

// Field is a single-field validation error.
func Field(field, message string) *Error {
	return Validation(map[string][]string{field: {message}})
}

// FromValidator converts validator.ValidationErrors into a Validation error.
func FromValidator(err error) *Error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return Wrap(ErrBadRequest, "invalid input", err)
	}
	fields := make(map[string][]string, len(ve))
	for _, fe := range ve {
		name := toSnake(fe.Field())
		msg := fe.Tag()
		if fe.Param() != "" {
			msg = fe.Tag() + "=" + fe.Param()
		}
		fields[name] = append(fields[name], msg)
	}
	return Validation(fields)
}

// As extracts an *Error from any error chain. Unknown errors become
// ErrInternal wrapping the original.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("unexpected error", err)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
