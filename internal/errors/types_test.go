package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapErrorFormatting(t *testing.T) {
	err := NewIOError(ErrCodeReadFailed, "read fragment", fs.ErrPermission).
		WithComponent("scene").
		WithFile("fragment.html")

	msg := err.Error()
	assert.Contains(t, msg, "[ERR_READ_FAILED]")
	assert.Contains(t, msg, "component:scene")
	assert.Contains(t, msg, "fragment.html")
	assert.Contains(t, msg, "read fragment")
	assert.Contains(t, msg, "permission denied")
}

func TestWrapErrorUnwrapAndIs(t *testing.T) {
	err := fmt.Errorf("binding: %w", ErrContainerNotFound("#app"))

	assert.True(t, errors.Is(err, &WrapError{Type: ErrorTypeValidation, Code: ErrCodeContainerNotFound}))
	assert.False(t, errors.Is(err, &WrapError{Type: ErrorTypeValidation, Code: ErrCodeInvalidSelector}))
	assert.True(t, HasCode(err, ErrCodeContainerNotFound))
	assert.True(t, IsRecoverable(err))

	cause := errors.New("bad token")
	sel := ErrInvalidSelector("div[", cause)
	assert.ErrorIs(t, sel, cause)
	assert.Equal(t, "div[", sel.Context["selector"])
}

func TestErrorTypes(t *testing.T) {
	testCases := []struct {
		name        string
		err         *WrapError
		wantType    ErrorType
		recoverable bool
	}{
		{"validation", NewValidationError("C", "m"), ErrorTypeValidation, true},
		{"parse", NewParseError("C", "m", nil), ErrorTypeParse, true},
		{"io", NewIOError("C", "m", nil), ErrorTypeIO, false},
		{"network", NewNetworkError("C", "m", nil), ErrorTypeNetwork, true},
		{"config", NewConfigError("C", "m"), ErrorTypeConfig, false},
		{"internal", NewInternalError("C", "m", nil), ErrorTypeInternal, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.wantType, tc.err.Type)
			assert.Equal(t, tc.recoverable, IsRecoverable(tc.err))
		})
	}

	assert.False(t, IsRecoverable(errors.New("plain")))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeInternalError))
}

func TestValidationErrorCollection(t *testing.T) {
	var vec ValidationErrorCollection
	assert.False(t, vec.HasErrors())
	assert.Nil(t, vec.ToWrapError())
	assert.Equal(t, "no validation errors", vec.Error())

	vec.AddField("server.port", 0, "port must be between 1 and 65535", "use 8080")
	assert.Equal(t, vec.Errors[0].Error(), vec.Error())

	vec.AddField("scene.fragment", "", "fragment is required")
	assert.Equal(t, "validation failed with 2 errors", vec.Error())

	we := vec.ToWrapError()
	require.NotNil(t, we)
	assert.Equal(t, ErrCodeValidationFailed, we.Code)
	assert.Contains(t, we.Message, "server.port")
	assert.Contains(t, we.Message, "scene.fragment")
	assert.Contains(t, we.Context, "server.port")

	fve, ok := vec.Errors[0].(*FieldValidationError)
	require.True(t, ok)
	assert.Equal(t, []string{"use 8080"}, fve.Suggestions())
	assert.Equal(t, 0, fve.Value())
}
