package domain

import "fmt"

// NetworkErrorMessage is the only text a failed rate fetch shows to the user.
const NetworkErrorMessage = "Unable to fetch exchange rates. Please check your internet connection."

// Validation messages.
const (
	MsgEmptyAmount        = "Please enter an amount to convert"
	MsgInvalidNumber      = "Please enter a valid number"
	MsgSameCurrencies     = "Please select different currencies to convert"
	MsgInvalidCurrency    = "Please select a valid currency"
	msgBelowMinimumFormat = "Amount must be at least %s"
	msgAboveMaximumFormat = "Amount cannot exceed %s"
	msgRateMissingFormat  = "Exchange rate for %s is not available"
)

// ValidationError user input failed a precondition; conversion does not proceed.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with the given user-facing message.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// BelowMinimumError is returned for amounts smaller than MinAmount.
func BelowMinimumError() *ValidationError {
	return NewValidationError(fmt.Sprintf(msgBelowMinimumFormat, MinAmount.String()))
}

// AboveMaximumError is returned for amounts larger than MaxAmount.
func AboveMaximumError() *ValidationError {
	return NewValidationError(fmt.Sprintf(msgAboveMaximumFormat, FormatGrouped(MaxAmount, 0)))
}

// RateUnavailableError is returned when the fetched table lacks the target currency.
func RateUnavailableError(code string) *ValidationError {
	return NewValidationError(fmt.Sprintf(msgRateMissingFormat, code))
}

// NetworkError rate fetch failed. Error() never exposes the cause.
type NetworkError struct {
	Cause error
}

// NewNetworkError wraps cause into a NetworkError.
func NewNetworkError(cause error) *NetworkError {
	return &NetworkError{Cause: cause}
}

func (e *NetworkError) Error() string {
	return NetworkErrorMessage
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// CorruptionError persisted state could not be decoded.
type CorruptionError struct {
	Key   string
	Cause error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupted persisted value for key %q: %v", e.Key, e.Cause)
}

func (e *CorruptionError) Unwrap() error {
	return e.Cause
}
