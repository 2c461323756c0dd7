package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/wrap/internal/dom"
)

func TestSyncFormState(t *testing.T) {
	doc, err := dom.NewDocument(`<div id="app">` +
		`<input id="name">` +
		`<input id="agree" type="checkbox" checked>` +
		`<input id="plain" checked>` +
		`<textarea id="note">old</textarea>` +
		`<select id="size"><option value="s" selected>S</option><option>M</option></select>` +
		`<button id="go">go</button>` +
		`</div>`)
	require.NoError(t, err)

	apply := func(sel string, detail map[string]string) string {
		t.Helper()
		n, err := doc.QuerySelector(sel)
		require.NoError(t, err)
		require.NotNil(t, n)
		syncFormState(n, detail)
		return dom.OuterHTML(n)
	}

	assert.Equal(t, `<input id="name" value="Ada"/>`, apply("#name", map[string]string{"value": "Ada", "checked": "false"}))
	assert.Equal(t, `<input id="agree" type="checkbox" value="on"/>`, apply("#agree", map[string]string{"value": "on", "checked": "false"}))
	assert.Equal(t, `<input id="agree" type="checkbox" value="on" checked=""/>`, apply("#agree", map[string]string{"value": "on", "checked": "true"}))
	assert.Equal(t, `<input id="plain" checked="" value=""/>`, apply("#plain", map[string]string{"value": "", "checked": "false"}))
	assert.Equal(t, `<textarea id="note">new text</textarea>`, apply("#note", map[string]string{"value": "new text"}))
	assert.Equal(t, `<select id="size"><option value="s">S</option><option selected="">M</option></select>`,
		apply("#size", map[string]string{"value": "M"}))
	assert.Equal(t, `<button id="go">go</button>`, apply("#go", map[string]string{"value": ""}))
}
