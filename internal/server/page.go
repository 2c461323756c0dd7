package server

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/wrap/internal/dom"
	"github.com/conneroisu/wrap/internal/errors"
	"github.com/conneroisu/wrap/internal/scene"
)

//go:embed client.js
var clientScript []byte

// errorPage keeps the client attached so the page recovers once the sources
// are fixed.
const errorPage = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>wrap: error</title></head><body>%s<script src="%s" defer></script></body></html>`

// page renders a scene's document as a templ component.
func page(sc *scene.Scene) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return sc.Render(w)
	})
}

// injectClient appends the live client script to the body.
func injectClient(doc *dom.Document) {
	parent := doc.Body()
	if parent == nil {
		parent = doc.Root()
	}

	dom.AppendChild(parent, &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "src", Val: clientPath}, {Key: "defer"}},
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sc, err := scene.Build(r.Context(), s.currentSpec(), s.logger)
	if err != nil {
		s.logger.Error(r.Context(), err, "Failed to build scene")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprintf(w, errorPage, errors.Overlay(err), clientPath)
		return
	}
	injectClient(sc.Doc)

	templ.Handler(page(sc)).ServeHTTP(w, r)
}

func (s *Server) handleClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(clientScript)
}
