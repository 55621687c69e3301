package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
)

var ErrorRecordNotFound = errors.New("record not found")

// NotFoundError is returned when a tenant-scoped record does not exist
// or belongs to another tenant (the two cases are indistinguishable on purpose).
type NotFoundError struct {
	Resource string
	Id       string
}

func (e *NotFoundError) Error() string {
	if e.Id == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Id)
}

func NewNotFoundError(resource string, id ...string) *NotFoundError {
	e := &NotFoundError{Resource: resource}
	if len(id) > 0 {
		e.Id = id[0]
	}
	return e
}

// ValidationError is malformed or logically inconsistent input.
// Details carries expected/received values for total-mismatch reporting.
type ValidationError struct {
	Message string
	Details map[string]interface{}
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func NewValidationErrorWithDetails(message string, details map[string]interface{}) *ValidationError {
	return &ValidationError{Message: message, Details: details}
}

// InsufficientStockError carries the shortfall for caller display.
type InsufficientStockError struct {
	ProductName string
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (available=%s, requested=%s)",
		e.ProductName, e.Available.String(), e.Requested.String())
}

func (e *InsufficientStockError) Missing() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

func NewInsufficientStockError(productName string, available, requested int) *InsufficientStockError {
	return &InsufficientStockError{
		ProductName: productName,
		Available:   decimal.NewFromInt(int64(available)),
		Requested:   decimal.NewFromInt(int64(requested)),
	}
}

// ConflictError is surfaced when the database could not serialize the
// transaction against concurrent writers. The caller should retry;
// this backend never retries on its own.
type ConflictError struct {
	Operation string
	Cause     error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s could not be completed due to a concurrent update, please retry", e.Operation)
}

func (e *ConflictError) Unwrap() error { return e.Cause }

func NewConflictError(operation string, cause error) *ConflictError {
	return &ConflictError{Operation: operation, Cause: cause}
}

// ExternalServiceError wraps post-commit side-effect failures.
// These are always logged and swallowed, never returned to callers.
type ExternalServiceError struct {
	Service string
	Cause   error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service error: %s: %v", e.Service, e.Cause)
}

func (e *ExternalServiceError) Unwrap() error { return e.Cause }

// IsSerializationFailure reports whether err is a MySQL deadlock (1213) or
// lock wait timeout (1205), the two shapes a serializable-isolation conflict
// takes on this store.
func IsSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	// gorm wraps some driver errors as plain strings
	msg := err.Error()
	return strings.Contains(msg, "Deadlock found") || strings.Contains(msg, "Lock wait timeout")
}

// WrapTxError maps a failed transaction error to the caller-facing taxonomy.
// Typed domain errors pass through untouched.
func WrapTxError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	var ve *ValidationError
	var is *InsufficientStockError
	var ce *ConflictError
	if errors.As(err, &nf) || errors.As(err, &ve) || errors.As(err, &is) || errors.As(err, &ce) {
		return err
	}
	if IsSerializationFailure(err) {
		return NewConflictError(operation, err)
	}
	return err
}
