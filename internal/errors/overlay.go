package errors

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
)

// Overlay renders err as a full-screen HTML panel for the browser. Code,
// file and field suggestions are shown when err carries them.
func Overlay(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(`<div id="wrap-error-overlay" style="
	position: fixed;
	inset: 0;
	background: rgba(0, 0, 0, 0.85);
	color: white;
	font-family: 'Monaco', 'Menlo', monospace;
	font-size: 14px;
	z-index: 9999;
	padding: 20px;
	overflow: auto;
">
	<div style="max-width: 1000px; margin: 0 auto;">
		<h2 style="margin: 0 0 20px; color: #ff6b6b;">Scene Error</h2>
`)

	color := "#ff6b6b"
	if IsRecoverable(err) {
		color = "#feca57"
	}

	var we *WrapError
	code, file := "", ""
	if errors.As(err, &we) {
		code, file = we.Code, we.FilePath
	}

	fmt.Fprintf(&sb, `		<div style="background: #2d3748; padding: 15px; border-radius: 4px; border-left: 4px solid %s;">
`, color)
	if code != "" {
		fmt.Fprintf(&sb, `			<div style="color: %s; font-weight: bold;">%s</div>
`, color, html.EscapeString(code))
	}
	fmt.Fprintf(&sb, `			<pre style="color: #e2e8f0; white-space: pre-wrap;">%s</pre>
`, html.EscapeString(err.Error()))
	if file != "" {
		fmt.Fprintf(&sb, `			<div style="color: #a0aec0; font-size: 12px;">%s</div>
`, html.EscapeString(file))
	}

	if hints := suggestions(err); len(hints) > 0 {
		sb.WriteString("\t\t\t<ul>\n")
		for _, h := range hints {
			fmt.Fprintf(&sb, "\t\t\t\t<li>%s</li>\n", html.EscapeString(h))
		}
		sb.WriteString("\t\t\t</ul>\n")
	}

	sb.WriteString("\t\t</div>\n\t</div>\n</div>")

	return sb.String()
}

func suggestions(err error) []string {
	var hints []string

	var we *WrapError
	if errors.As(err, &we) && we.Type == ErrorTypeValidation {
		fields := make([]string, 0, len(we.Context))
		for field := range we.Context {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			detail, ok := we.Context[field].(map[string]interface{})
			if !ok {
				continue
			}
			list, _ := detail["suggestions"].([]string)
			for _, s := range list {
				hints = append(hints, field+": "+s)
			}
		}
	}

	var ve ValidationError
	if errors.As(err, &ve) {
		hints = append(hints, ve.Suggestions()...)
	}

	return hints
}
