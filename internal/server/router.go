package server

import (
	"net/http"
	"slices"
	"strings"
)

// BasicRouter implements [Router] on top of [http.ServeMux] method patterns.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	patterns    []string
}

// NewBasicRouter creates an empty [BasicRouter].
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. It only affects handlers registered afterwards.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for "METHOD path". The mux answers 405 for other methods on a known path.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.register(strings.ToUpper(method)+" "+path, r.Apply(handler))
}

// Handler registers every pattern returned by [Handler.Routes].
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)
	for _, route := range handler.Routes() {
		r.register(route, wrapped)
	}
}

func (r *BasicRouter) register(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
	r.patterns = append(r.patterns, pattern)
}

// Patterns returns the registered patterns, sorted.
func (r *BasicRouter) Patterns() []string {
	out := slices.Clone(r.patterns)
	slices.Sort(out)
	return out
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler so the first middleware added is the outermost.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}
