package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a type, code and message. A WrapError cause keeps
// its context, component and file.
func Wrap(err error, errType ErrorType, code, message string) *WrapError {
	if err == nil {
		return nil
	}

	var we *WrapError
	if errors.As(err, &we) {
		return &WrapError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       we,
			Context:     we.Context,
			Component:   we.Component,
			FilePath:    we.FilePath,
			Recoverable: we.Recoverable,
		}
	}

	return &WrapError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation || errType == ErrorTypeParse,
	}
}

// FormatErrorWithSuggestions formats an error for the terminal, listing the
// suggestions of every field validation error it carries.
func FormatErrorWithSuggestions(err error) string {
	if err == nil {
		return ""
	}

	var we *WrapError
	if errors.As(err, &we) && we.Type == ErrorTypeValidation && len(we.Context) > 0 {
		var sb strings.Builder
		sb.WriteString(err.Error())
		for field, raw := range we.Context {
			detail, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			suggestions, _ := detail["suggestions"].([]string)
			for _, s := range suggestions {
				sb.WriteString(fmt.Sprintf("\n  • %s: %s", field, s))
			}
		}
		return sb.String()
	}

	var ve ValidationError
	if errors.As(err, &ve) {
		result := ve.Error()
		for _, s := range ve.Suggestions() {
			result += fmt.Sprintf("\n  • %s", s)
		}
		return result
	}

	return err.Error()
}

// CombineErrors joins the non-nil errors. It returns nil when there are none
// and the error itself when there is exactly one.
func CombineErrors(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}

	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}

	messages := make([]string, 0, len(nonNil))
	for _, err := range nonNil {
		messages = append(messages, err.Error())
	}

	return &WrapError{
		Type:    ErrorTypeInternal,
		Code:    "ERR_MULTIPLE_ERRORS",
		Message: fmt.Sprintf("multiple errors occurred: %s", strings.Join(messages, "; ")),
		Cause:   errors.Join(nonNil...),
		Context: map[string]interface{}{"error_count": len(nonNil)},
	}
}
