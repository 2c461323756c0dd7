// Package scene assembles a bound document from a host page, a fragment,
// initial values and declarative event actions.
package scene

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/wrap/internal/binder"
	"github.com/conneroisu/wrap/internal/config"
	"github.com/conneroisu/wrap/internal/dom"
	"github.com/conneroisu/wrap/internal/errors"
	"github.com/conneroisu/wrap/internal/logging"
)

// DefaultPage hosts the fragment when no page is configured.
const DefaultPage = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>wrap</title></head><body><div id="app"></div></body></html>`

// Action reacts to a declared @name event. Set templates use the marker
// syntax; a name resolves against the event detail first, then the store.
// Increment adds one to integer values (anything else counts as zero).
type Action struct {
	Name      string
	Type      string
	Set       []binder.Pair
	Increment []string
}

// Spec is everything needed to build a scene, already read into memory.
type Spec struct {
	Page      string
	Fragment  string
	Container string
	Values    []binder.Pair
	Actions   []Action
}

// Scene is a document with a bound fragment.
type Scene struct {
	Doc    *dom.Document
	Handle *binder.Handle
	spec   Spec
}

// Build parses the page, binds the fragment into the container, applies the
// initial values in order and wires the actions.
func Build(ctx context.Context, spec Spec, logger logging.Logger, opts ...binder.Option) (*Scene, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("scene")

	page := spec.Page
	if strings.TrimSpace(page) == "" {
		page = DefaultPage
	}
	container := spec.Container
	if container == "" {
		container = config.DefaultContainer
	}

	doc, err := dom.NewDocument(page)
	if err != nil {
		return nil, err
	}

	op := logger.StartOperation("bind")
	opts = append([]binder.Option{binder.WithLogger(logger)}, opts...)
	h, err := binder.Bind(doc, binder.Selector(container), spec.Fragment, opts...)
	if err != nil {
		op.EndWithError(ctx, err)
		return nil, fmt.Errorf("binding fragment: %w", err)
	}
	op.End(ctx)

	h.SetPairs(spec.Values...)

	for _, action := range spec.Actions {
		wire(h, action)
	}

	logger.Debug(ctx, "Scene built",
		"placeholders", len(h.Placeholders()),
		"events", len(h.Events()),
		"actions", len(spec.Actions))

	return &Scene{Doc: doc, Handle: h, spec: spec}, nil
}

func wire(h *binder.Handle, action Action) {
	eventType := action.Type
	if eventType == "" {
		eventType = "click"
	}

	sets := make([]struct {
		name string
		plan binder.Plan
		lit  string
		ok   bool
	}, len(action.Set))
	for i, s := range action.Set {
		sets[i].name = s.Name
		sets[i].lit = s.Value
		sets[i].plan, sets[i].ok = binder.Scan(s.Value)
	}

	h.SetEvent(action.Name, eventType, func(ev *dom.Event, values *binder.Values) {
		lookup := func(name string) string {
			if v, ok := ev.Detail[name]; ok {
				return v
			}
			return values.Lookup(name)
		}

		for _, s := range sets {
			value := s.lit
			if s.ok {
				value = s.plan.Render(lookup)
			}
			h.SetValue(s.name, value)
		}

		for _, name := range action.Increment {
			n, err := strconv.Atoi(strings.TrimSpace(values.Lookup(name)))
			if err != nil {
				n = 0
			}
			h.SetValue(name, strconv.Itoa(n+1))
		}
	})
}

// Spec returns the spec the scene was built from.
func (s *Scene) Spec() Spec {
	return s.spec
}

// Render writes the whole document.
func (s *Scene) Render(w io.Writer) error {
	return s.Doc.Render(w)
}

// InnerHTML renders the container's children.
func (s *Scene) InnerHTML() string {
	return dom.InnerHTML(s.Handle.Container())
}

// Rebuild builds a scene from spec and re-applies every value that was set
// on this one, so a reloaded page keeps its state.
func (s *Scene) Rebuild(ctx context.Context, spec Spec, logger logging.Logger, opts ...binder.Option) (*Scene, error) {
	next, err := Build(ctx, spec, logger, opts...)
	if err != nil {
		return nil, err
	}
	next.Handle.SetPairs(s.Handle.Values().Assigned()...)

	return next, nil
}

// ReadSpec loads the files named by cfg into a Spec. Values from the values
// file come first, inline values after them.
func ReadSpec(cfg *config.Config) (Spec, error) {
	spec := Spec{Container: cfg.Scene.Container}

	if err := cfg.RequireFragment(); err != nil {
		return spec, err
	}
	fragment, err := ReadFile(cfg.Scene.Fragment)
	if err != nil {
		return spec, err
	}
	spec.Fragment = fragment

	if cfg.Scene.Page != "" {
		page, err := ReadFile(cfg.Scene.Page)
		if err != nil {
			return spec, err
		}
		spec.Page = page
	}

	if cfg.Scene.ValuesFile != "" {
		f, err := os.Open(cfg.Scene.ValuesFile)
		if err != nil {
			return spec, ioError(cfg.Scene.ValuesFile, err)
		}
		defer f.Close()

		pairs, err := LoadValues(f)
		if err != nil {
			return spec, errors.NewParseError(errors.ErrCodeConfigInvalid, "invalid values file", err).
				WithFile(cfg.Scene.ValuesFile)
		}
		spec.Values = append(spec.Values, pairs...)
	}

	for _, v := range cfg.Scene.Values {
		spec.Values = append(spec.Values, binder.Pair{Name: v.Name, Value: v.Value})
	}

	for _, ev := range cfg.Scene.Events {
		action := Action{Name: ev.Name, Type: ev.Type, Increment: ev.Increment}
		for _, s := range ev.Set {
			action.Set = append(action.Set, binder.Pair{Name: s.Name, Value: s.Value})
		}
		spec.Actions = append(spec.Actions, action)
	}

	return spec, nil
}

// ReadFile reads a markup file.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ioError(path, err)
	}

	return string(data), nil
}

func ioError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return errors.ErrFileNotFound(path, err)
	}

	return errors.NewIOError(errors.ErrCodeReadFailed, "failed to read file", err).WithFile(path)
}

// LoadValues decodes a YAML mapping of placeholder names to scalar values,
// keeping document order.
func LoadValues(r io.Reader) ([]binder.Pair, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	node := &root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: values must be a mapping", node.Line)
	}

	pairs := make([]binder.Pair, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: value of %q must be a scalar", val.Line, key.Value)
		}
		value := val.Value
		if val.Tag == "!!null" {
			value = ""
		}
		pairs = append(pairs, binder.Pair{Name: key.Value, Value: value})
	}

	return pairs, nil
}
