// Package errors defines the structured error type used across wrap.
//
// Errors carry a category, a stable code, an optional cause and free-form
// context. Binding itself is permissive: unknown placeholder names and
// unbalanced markers are not errors. Only misuse that Go callers can act on
// (missing container, bad selector, bad configuration, I/O) is reported.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// WrapError is a structured error type with context.
type WrapError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *WrapError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}
	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}
	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)
	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *WrapError) Unwrap() error {
	return e.Cause
}

// Is matches another WrapError with the same type and code.
func (e *WrapError) Is(target error) bool {
	var t *WrapError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *WrapError) WithContext(key string, value interface{}) *WrapError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile records the file the error relates to.
func (e *WrapError) WithFile(path string) *WrapError {
	e.FilePath = path

	return e
}

// WithComponent adds component context.
func (e *WrapError) WithComponent(component string) *WrapError {
	e.Component = component

	return e
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *WrapError {
	return &WrapError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewParseError creates a markup or selector parse error.
func NewParseError(code, message string, cause error) *WrapError {
	return &WrapError{
		Type:        ErrorTypeParse,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *WrapError {
	return &WrapError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewNetworkError creates a network error.
func NewNetworkError(code, message string, cause error) *WrapError {
	return &WrapError{
		Type:        ErrorTypeNetwork,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *WrapError {
	return &WrapError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *WrapError {
	return &WrapError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var we *WrapError
	if errors.As(err, &we) {
		return we.Recoverable
	}

	return false
}

// HasCode reports whether err is a WrapError carrying code.
func HasCode(err error, code string) bool {
	var we *WrapError
	if errors.As(err, &we) {
		return we.Code == code
	}

	return false
}

// Common error codes.
const (
	ErrCodeContainerNotFound = "ERR_CONTAINER_NOT_FOUND"
	ErrCodeInvalidSelector   = "ERR_INVALID_SELECTOR"
	ErrCodeInvalidMarkup     = "ERR_INVALID_MARKUP"
	ErrCodeNodeNotFound      = "ERR_NODE_NOT_FOUND"
	ErrCodeFileNotFound      = "ERR_FILE_NOT_FOUND"
	ErrCodeReadFailed        = "ERR_READ_FAILED"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeInvalidMessage    = "ERR_INVALID_MESSAGE"
	ErrCodeServerFailed      = "ERR_SERVER_FAILED"
	ErrCodeInternalError     = "ERR_INTERNAL"
	ErrCodeValidationFailed  = "ERR_VALIDATION_FAILED"
)

// ValidationError interface for field-specific validation errors.
type ValidationError interface {
	error
	Field() string
	Value() interface{}
	Suggestions() []string
}

// FieldValidationError implements ValidationError for specific field errors.
type FieldValidationError struct {
	FieldName    string
	FieldValue   interface{}
	ErrorMessage string
	HelpText     []string
}

// Error implements the error interface.
func (fve *FieldValidationError) Error() string {
	return fmt.Sprintf("validation error in field '%s': %s", fve.FieldName, fve.ErrorMessage)
}

// Field returns the field name that failed validation.
func (fve *FieldValidationError) Field() string {
	return fve.FieldName
}

// Value returns the invalid value.
func (fve *FieldValidationError) Value() interface{} {
	return fve.FieldValue
}

// Suggestions returns helpful suggestions for fixing the error.
func (fve *FieldValidationError) Suggestions() []string {
	return fve.HelpText
}

// NewFieldValidationError creates a new field validation error.
func NewFieldValidationError(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) *FieldValidationError {
	return &FieldValidationError{
		FieldName:    field,
		FieldValue:   value,
		ErrorMessage: message,
		HelpText:     suggestions,
	}
}

// ValidationErrorCollection represents a collection of validation errors.
type ValidationErrorCollection struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (vec *ValidationErrorCollection) Error() string {
	if len(vec.Errors) == 0 {
		return "no validation errors"
	}
	if len(vec.Errors) == 1 {
		return vec.Errors[0].Error()
	}

	return fmt.Sprintf("validation failed with %d errors", len(vec.Errors))
}

// Add adds a validation error to the collection.
func (vec *ValidationErrorCollection) Add(err ValidationError) {
	vec.Errors = append(vec.Errors, err)
}

// AddField adds a field validation error to the collection.
func (vec *ValidationErrorCollection) AddField(
	field string,
	value interface{},
	message string,
	suggestions ...string,
) {
	vec.Add(NewFieldValidationError(field, value, message, suggestions...))
}

// HasErrors returns true if there are any validation errors.
func (vec *ValidationErrorCollection) HasErrors() bool {
	return len(vec.Errors) > 0
}

// ToWrapError converts the collection to a single WrapError, or nil when empty.
func (vec *ValidationErrorCollection) ToWrapError() *WrapError {
	if !vec.HasErrors() {
		return nil
	}

	messages := make([]string, 0, len(vec.Errors))
	context := make(map[string]interface{}, len(vec.Errors))

	for _, err := range vec.Errors {
		messages = append(messages, err.Error())
		context[err.Field()] = map[string]interface{}{
			"value":       err.Value(),
			"suggestions": err.Suggestions(),
		}
	}

	return &WrapError{
		Type:        ErrorTypeValidation,
		Code:        ErrCodeValidationFailed,
		Message:     strings.Join(messages, "; "),
		Context:     context,
		Recoverable: true,
	}
}

// ErrContainerNotFound reports a selector that matched nothing.
func ErrContainerNotFound(selector string) *WrapError {
	return NewValidationError(ErrCodeContainerNotFound, "no element matches container selector "+selector).
		WithContext("selector", selector)
}

// ErrInvalidSelector reports a selector that does not compile.
func ErrInvalidSelector(selector string, cause error) *WrapError {
	return NewParseError(ErrCodeInvalidSelector, "invalid selector "+selector, cause).
		WithContext("selector", selector)
}

// ErrFileNotFound reports a missing input file.
func ErrFileNotFound(path string, cause error) *WrapError {
	return NewIOError(ErrCodeFileNotFound, "file not found", cause).WithFile(path)
}
