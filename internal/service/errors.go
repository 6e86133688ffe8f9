package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Handlers map these to HTTP statuses with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrAlreadyClosed       = errors.New("order is already closed")
	ErrAmountMismatch      = errors.New("payment total does not match order total")
	ErrInvalidPayment      = errors.New("invalid payment")
	ErrDuplicateSubmission = errors.New("duplicate submission, please wait a few seconds before retrying")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrPlanLimit           = errors.New("plan limit reached")
	ErrConflict            = errors.New("conflict")
)

// Error is a domain error whose message is safe to show to the caller.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) error {
	return newError(ErrValidation, format, args...)
}

// AmountMismatchError reports payments that do not cover the order total.
type AmountMismatchError struct {
	PaymentsTotal decimal.Decimal
	OrderTotal    decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payments total (%s) does not match order total (%s)",
		e.PaymentsTotal.StringFixed(2), e.OrderTotal.StringFixed(2))
}

func (e *AmountMismatchError) Is(target error) bool { return target == ErrAmountMismatch }

// InvalidPaymentError names the payment that failed validation.
type InvalidPaymentError struct {
	Index  int
	Method string
	Amount decimal.Decimal
}

func (e *InvalidPaymentError) Error() string {
	if !isPaymentMethod(e.Method) {
		return fmt.Sprintf("payment method %q is not valid", e.Method)
	}
	return fmt.Sprintf("payment %d (%s): amount %s must be greater than zero",
		e.Index+1, e.Method, e.Amount.StringFixed(2))
}

func (e *InvalidPaymentError) Is(target error) bool { return target == ErrInvalidPayment }
