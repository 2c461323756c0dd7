package binder

import (
	"regexp"
	"strings"
)

// markerPattern matches {{name}}. The name may not contain '}', so
// "{{a}b}}" is not a marker and stays literal text.
var markerPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Plan is the interpolation plan for one text or attribute value: literal
// segments interleaved with placeholder names. literals always holds one
// more element than names.
type Plan struct {
	literals []string
	names    []string
}

// Scan builds the plan for text. It reports false when text holds no
// marker, in which case the text is static.
func Scan(text string) (Plan, bool) {
	matches := markerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return Plan{}, false
	}

	p := Plan{
		literals: make([]string, 0, len(matches)+1),
		names:    make([]string, 0, len(matches)),
	}
	last := 0
	for _, m := range matches {
		p.literals = append(p.literals, text[last:m[0]])
		p.names = append(p.names, strings.TrimSpace(text[m[2]:m[3]]))
		last = m[1]
	}
	p.literals = append(p.literals, text[last:])

	return p, true
}

// Names returns the placeholder references in order, repeats included.
func (p Plan) Names() []string {
	return append([]string(nil), p.names...)
}

// Distinct returns each referenced name once, in first-reference order.
func (p Plan) Distinct() []string {
	seen := make(map[string]bool, len(p.names))
	out := make([]string, 0, len(p.names))
	for _, n := range p.names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}

	return out
}

// Render rebuilds the full string, substituting lookup(name) for each
// reference.
func (p Plan) Render(lookup func(name string) string) string {
	var sb strings.Builder
	for i, lit := range p.literals {
		sb.WriteString(lit)
		if i < len(p.names) {
			sb.WriteString(lookup(p.names[i]))
		}
	}

	return sb.String()
}
