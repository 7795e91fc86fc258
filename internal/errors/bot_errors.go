package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Critical errors that stop a strategy before its schedule starts
	ErrorCategoryFatal  ErrorCategory = "FATAL"
	ErrorCategoryConfig ErrorCategory = "CONFIG"

	// NETWORK errors are transient and tick-scoped: the failing tick is
	// abandoned and the next scheduled tick is the retry.
	ErrorCategoryNetwork ErrorCategory = "NETWORK"
	ErrorCategoryTimeout ErrorCategory = "TIMEOUT"

	// EXCHANGE errors are order-level rejections by the venue; the signal
	// is dropped and audited, the tick continues.
	ErrorCategoryExchange ErrorCategory = "EXCHANGE"

	// RISK_BLOCKED is an expected control-flow outcome of the risk gate,
	// always audited, never surfaced as a failure to the caller.
	ErrorCategoryRiskBlocked ErrorCategory = "RISK_BLOCKED"

	ErrorCategoryValidation ErrorCategory = "VALIDATION"
)

// BotError represents a categorized error with context
type BotError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s in %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s in %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// IsFatal returns whether this error should prevent the strategy from starting
func (e *BotError) IsFatal() bool {
	return e.Category == ErrorCategoryFatal || e.Category == ErrorCategoryConfig
}

// AbortsTick reports whether the error abandons the current tick's detection
// phase. Only transient network failures do; order rejections and risk blocks
// are handled per signal.
func (e *BotError) AbortsTick() bool {
	return e.Category == ErrorCategoryNetwork || e.Category == ErrorCategoryTimeout
}

// NewBotError creates a new categorized bot error
func NewBotError(category ErrorCategory, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// WrapError wraps an existing error with bot error context
func WrapError(err error, category ErrorCategory, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
	}
}

// CategorizeError attempts to categorize a generic error
func CategorizeError(err error, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "context deadline exceeded") {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") {
		return WrapError(err, ErrorCategoryNetwork, component, operation)
	}

	if strings.Contains(errMsg, "rejected") || strings.Contains(errMsg, "insufficient") ||
		strings.Contains(errMsg, "balance") {
		return WrapError(err, ErrorCategoryExchange, component, operation)
	}

	if strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "minimum") ||
		strings.Contains(errMsg, "maximum") {
		return WrapError(err, ErrorCategoryValidation, component, operation)
	}

	// Unknown failures from the wire are treated as transient
	return WrapError(err, ErrorCategoryNetwork, component, operation)
}

// Common error constructors
func NewNetworkError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryNetwork, component, operation)
}

func NewTimeoutError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryTimeout, component, operation)
}

func NewExchangeError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryExchange, component, operation)
}

func NewValidationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryValidation, component, operation, message)
}

func NewConfigError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConfig, component, operation, message)
}

func NewFatalError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryFatal, component, operation, message)
}

// IsNetwork reports whether err is a transient network or timeout failure
// that should abort the current tick.
func IsNetwork(err error) bool {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr.AbortsTick()
	}
	return false
}

// IsExchange reports whether err is an order-level venue rejection.
func IsExchange(err error) bool {
	var botErr *BotError
	if errors.As(err, &botErr) {
		return botErr.Category == ErrorCategoryExchange
	}
	return false
}
