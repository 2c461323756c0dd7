package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/wrap/internal/binder"
	"github.com/conneroisu/wrap/internal/config"
	"github.com/conneroisu/wrap/internal/errors"
)

const cardFragment = `<div class="card" title="{{title}}"><h2>{{title}}</h2><p>{{count}} items</p><button id="more" class="btn primary" @more>More</button></div>`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := execute(root, args, &stderr)

	return stdout.String(), stderr.String(), err
}

func TestRenderInner(t *testing.T) {
	fragment := writeFile(t, t.TempDir(), "card.html", cardFragment)

	out, _, err := run(t, "render", "-f", fragment, "--set", "title=Books", "--set", "count=3", "--inner")
	require.NoError(t, err)
	assert.Equal(t,
		`<div class="card" title="Books"><h2>Books</h2><p>3 items</p><button id="more" class="btn primary">More</button></div>`+"\n",
		out)
}

func TestRenderUnsetMarkersStay(t *testing.T) {
	fragment := writeFile(t, t.TempDir(), "card.html", `<p>{{a}}</p><p>{{b}}</p>`)

	out, _, err := run(t, "render", "-f", fragment, "--set", "a=1", "--inner")
	require.NoError(t, err)
	assert.Equal(t, "<p>1</p><p>{{b}}</p>\n", out)
}

func TestRenderDocumentToFile(t *testing.T) {
	dir := t.TempDir()
	fragment := writeFile(t, dir, "f.html", `<p>Hello {{name}}</p>`)
	page := writeFile(t, dir, "page.html", `<html><body><main><h1>Title</h1></main></body></html>`)
	values := writeFile(t, dir, "values.yml", "name: Ada\n")
	output := filepath.Join(dir, "out.html")

	out, _, err := run(t, "render", "-f", fragment, "--page", page, "-c", "main", "--values", values, "-o", output)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<main><h1>Title</h1><p>Hello Ada</p></main>")
}

func TestRenderFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	fragment := writeFile(t, dir, "f.html", `<p>{{userName}} / {{count}}</p>`)
	cfgPath := writeFile(t, dir, "wrap.yml", `
scene:
  fragment: `+fragment+`
  values:
    - name: userName
      value: Grace
    - name: count
      value: "1"
`)

	out, _, err := run(t, "render", "--config", cfgPath, "--set", "count=2", "--inner")
	require.NoError(t, err)
	assert.Equal(t, "<p>Grace / 2</p>\n", out)
}

func TestRenderErrors(t *testing.T) {
	_, stderr, err := run(t, "render")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidationFailed))
	assert.Contains(t, stderr, "pass --fragment")

	_, _, err = run(t, "render", "-f", filepath.Join(t.TempDir(), "missing.html"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeFileNotFound))

	fragment := writeFile(t, t.TempDir(), "f.html", `<p></p>`)
	_, _, err = run(t, "render", "-f", fragment, "-c", "#nowhere")
	assert.True(t, errors.HasCode(err, errors.ErrCodeContainerNotFound))

	_, _, err = run(t, "render", "-f", fragment, "--set", "novalue")
	assert.Error(t, err)

	_, _, err = run(t, "render", "--config", filepath.Join(t.TempDir(), "nope.yml"), "-f", fragment)
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfigInvalid))
}

func TestInspectText(t *testing.T) {
	fragment := writeFile(t, t.TempDir(), "card.html", cardFragment)

	out, _, err := run(t, "inspect", "-f", fragment)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Card ("+fragment+")\n"))
	assert.Contains(t, out, "Placeholders (2)")
	assert.Contains(t, out, "title  2 bindings")
	assert.Contains(t, out, "count  1 binding\n")
	assert.Contains(t, out, "Events (1)")
	assert.Contains(t, out, "@more  button#more.btn.primary")
}

func TestInspectJSONAndYAML(t *testing.T) {
	fragment := writeFile(t, t.TempDir(), "card.html", cardFragment)

	out, _, err := run(t, "inspect", "-f", fragment, "--format", "json")
	require.NoError(t, err)
	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "Card", report.Title)
	assert.Equal(t, []placeholderInfo{{"title", 2}, {"count", 1}}, report.Placeholders)
	assert.Equal(t, []eventInfo{{"more", []string{"button#more.btn.primary"}}}, report.Events)

	out, _, err = run(t, "inspect", "-f", fragment, "--format", "yaml")
	require.NoError(t, err)
	var fromYAML inspectReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &fromYAML))
	assert.Equal(t, report, fromYAML)

	_, _, err = run(t, "inspect", "-f", fragment, "--format", "xml")
	assert.Error(t, err)
}

type failingCloser struct {
	bytes.Buffer
	err error
}

func (f *failingCloser) Close() error { return f.err }

func TestWriteOutputReportsCloseError(t *testing.T) {
	orig := createOutput
	t.Cleanup(func() { createOutput = orig })

	diskFull := stderrors.New("no space left on device")
	target := &failingCloser{err: diskFull}
	createOutput = func(string) (io.WriteCloser, error) { return target, nil }

	err := writeOutput("out.html", func(w io.Writer) error {
		_, err := io.WriteString(w, "<p>hi</p>")
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, "<p>hi</p>", target.String())

	writeFailed := stderrors.New("write failed")
	err = writeOutput("out.html", func(io.Writer) error { return writeFailed })
	assert.ErrorIs(t, err, writeFailed)

	target.err = nil
	assert.NoError(t, writeOutput("out.html", func(io.Writer) error { return nil }))
}

func TestFragmentTitle(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"card.html", "Card"},
		{"/tmp/user-card.html", "User Card"},
		{"todo_list_item.htm", "Todo List Item"},
		{"PRICING.html", "Pricing"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, fragmentTitle(tt.path))
		})
	}
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	out, _, err = run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "wrap ")
	assert.Contains(t, out, "Platform: ")

	out, _, err = run(t, "version", "--short")
	require.NoError(t, err)
	assert.NotContains(t, out, "Platform")
}

func TestPairsValue(t *testing.T) {
	var p pairsValue
	require.NoError(t, p.Set("a=1"))
	require.NoError(t, p.Set(" b =x=y"))
	require.NoError(t, p.Set("c="))
	assert.Equal(t, []binder.Pair{{Name: "a", Value: "1"}, {Name: "b", Value: "x=y"}, {Name: "c", Value: ""}}, p.pairs)
	assert.Equal(t, "[a=1,b=x=y,c=]", p.String())
	assert.Equal(t, "name=value", p.Type())

	assert.Error(t, p.Set("plain"))
	assert.Error(t, p.Set("=v"))
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort("0"))
	assert.NoError(t, ValidatePort("8080"))
	assert.Error(t, ValidatePort("65536"))
	assert.Error(t, ValidatePort("-1"))
	assert.Error(t, ValidatePort("http"))

	_, _, err := run(t, "serve", "--port", "70000")
	assert.Error(t, err)
}

func TestRunServeStopsOnCancel(t *testing.T) {
	fragment := writeFile(t, t.TempDir(), "f.html", `<p>{{a}}</p>`)

	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Watch.Enabled = false
	cfg.Scene.Fragment = fragment

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	assert.NoError(t, runServe(ctx, cfg))
}
