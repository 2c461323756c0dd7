package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tag(name string, trace *[]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*trace = append(*trace, "in:"+name)
			next.ServeHTTP(w, r)
			*trace = append(*trace, "out:"+name)
		})
	}
}

func TestChainOrder(t *testing.T) {
	var trace []string
	chain := NewChain(tag("a", &trace), tag("b", &trace))
	chain.Add(tag("c", &trace))
	assert.Equal(t, 3, chain.Len())

	handler := chain.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		trace = append(trace, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"in:a", "in:b", "in:c", "handler", "out:c", "out:b", "out:a"}, trace)
}

func TestApplyNilHandlerPanics(t *testing.T) {
	assert.Panics(t, func() { NewChain().Apply(nil) })
}

func TestDefaultStack(t *testing.T) {
	handler := Default(nil).Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/boom") {
			panic("boom")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusRecorder(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, err := rec.Write([]byte("x"))
	require.NoError(t, err)
	rec.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusOK, rec.status)

	_, _, err = rec.Hijack()
	assert.Error(t, err)
	assert.NotNil(t, rec.Unwrap())
}
