package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"savings-circle/rosca/internal/constants"
)

// Kind is the coarse failure class every domain error belongs to.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindConflict          Kind = "Conflict"
	KindInsufficientFunds Kind = "InsufficientFunds"
	KindInternal          Kind = "InternalFailure"
)

// Shortfall names one member whose balance could not cover a contribution.
type Shortfall struct {
	UserID         string          `json:"user_id"`
	RequiredAmount decimal.Decimal `json:"required_amount"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

// Error is the structured failure returned by every core operation.
type Error struct {
	Kind    Kind
	Code    string
	Message string

	// Set for InsufficientFunds on a single wallet.
	RequiredAmount *decimal.Decimal
	CurrentBalance *decimal.Decimal

	// Set when a cycle aborts on one or more short members.
	Shortfalls []Shortfall

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, code, message string) *Error {
	if message == "" {
		message = constants.GetErrorMessage(code)
	}
	return &Error{Kind: kind, Code: code, Message: message}
}

func NotFound(code, message string) *Error {
	return newError(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return newError(KindConflict, code, message)
}

// InsufficientFunds reports a single wallet that cannot cover required.
func InsufficientFunds(required, current decimal.Decimal) *Error {
	e := newError(KindInsufficientFunds, constants.ErrCodeInsufficientFunds,
		fmt.Sprintf("insufficient balance: required %s, current %s", required.StringFixed(2), current.StringFixed(2)))
	e.RequiredAmount = &required
	e.CurrentBalance = &current
	return e
}

// ContributionShortfall reports every member that blocked a cycle.
func ContributionShortfall(shortfalls []Shortfall) *Error {
	ids := make([]string, 0, len(shortfalls))
	for _, s := range shortfalls {
		ids = append(ids, s.UserID)
	}
	e := newError(KindInsufficientFunds, constants.ErrCodeInsufficientFunds,
		fmt.Sprintf("members with insufficient balance: %v", ids))
	e.Shortfalls = shortfalls
	return e
}

// Internal wraps an unexpected storage failure.
func Internal(op string, err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    constants.ErrCodeInternal,
		Message: op,
		Err:     err,
	}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// Code returns err's code, "ok" for nil, or the internal code for foreign errors.
// Used as a metrics label.
func Code(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return constants.ErrCodeInternal
}

// HTTPStatus maps an error to the status the API layer answers with.
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInsufficientFunds:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
