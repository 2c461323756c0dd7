package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlay(t *testing.T) {
	assert.Empty(t, Overlay(nil))

	out := Overlay(ErrContainerNotFound("#app"))
	assert.Contains(t, out, `id="wrap-error-overlay"`)
	assert.Contains(t, out, ErrCodeContainerNotFound)
	assert.Contains(t, out, "#app")

	out = Overlay(errors.New(`<script>alert("x")</script>`))
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")

	out = Overlay(ErrFileNotFound("frag.html", nil))
	assert.Contains(t, out, "frag.html")
}

func TestOverlaySuggestions(t *testing.T) {
	var vec ValidationErrorCollection
	vec.AddField("scene.fragment", "", "a fragment file is required", "pass --fragment")
	out := Overlay(vec.ToWrapError())
	assert.Contains(t, out, "<li>scene.fragment: pass --fragment</li>")

	out = Overlay(NewFieldValidationError("port", 0, "bad port", "use <8080>"))
	assert.Contains(t, out, "<li>use &lt;8080&gt;</li>")
}
