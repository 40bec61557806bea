package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/services"
	"github.com/desertthunder/tubetodo/internal/shared"
	"github.com/desertthunder/tubetodo/internal/tasks"
)

// PlaylistResolver is implemented by [services.Resolver].
type PlaylistResolver interface {
	Resolve(ctx context.Context, req services.Request) (*services.Result, error)
}

// Discoverer is implemented by [tasks.Discovery].
type Discoverer interface {
	Run(ctx context.Context, progress chan<- tasks.ProgressUpdate, candidates []string) *tasks.DiscoveryResult
}

// Defaults supplies the API key and mirror base used when a request omits them.
// It is called per request so stored settings take effect without a restart.
type Defaults func() (apiKey, mirrorBase string)

// API serves the JSON endpoints.
type API struct {
	resolver   PlaylistResolver
	direct     Discoverer
	relay      Discoverer
	candidates []string
	defaults   Defaults
	logger     *log.Logger
}

// APIOpts configures [NewAPI]. Nil discoverers disable the matching /api/instances mode.
type APIOpts struct {
	Resolver   PlaylistResolver
	Direct     Discoverer
	Relay      Discoverer
	Candidates []string
	Defaults   Defaults
	Logger     *log.Logger
}

// NewAPI creates the JSON handler.
func NewAPI(opts APIOpts) *API {
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	defaults := opts.Defaults
	if defaults == nil {
		defaults = func() (string, string) { return "", "" }
	}
	return &API{
		resolver:   opts.Resolver,
		direct:     opts.Direct,
		relay:      opts.Relay,
		candidates: opts.Candidates,
		defaults:   defaults,
		logger:     shared.WithLogger(logger, "component", "api"),
	}
}

// Routes implements [Handler].
func (a *API) Routes() []string {
	return []string{"GET /health", "GET /api/playlist", "GET /api/instances"}
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case "/api/playlist":
		a.playlist(w, r)
	case "/api/instances":
		a.instances(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found", nil)
	}
}

func (a *API) playlist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := strings.TrimSpace(q.Get("ref"))
	if ref == "" {
		writeError(w, http.StatusBadRequest, "missing ref parameter", nil)
		return
	}

	key, mirror := a.defaults()
	if v := q.Get("key"); v != "" {
		key = v
	}
	if v := q.Get("mirror"); v != "" {
		mirror = v
	}

	res, err := a.resolver.Resolve(r.Context(), services.Request{Reference: ref, APIKey: key, MirrorBase: mirror})
	if err != nil {
		a.logger.Warn("resolve failed", "ref", ref, "err", err)
		var attempts []services.Attempt
		var ae *services.AttemptsError
		if errors.As(err, &ae) {
			attempts = ae.Attempts
		}
		writeError(w, statusFor(err), err.Error(), attempts)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type instancesResponse struct {
	Mode       string            `json:"mode"`
	Working    []models.Instance `json:"working"`
	NotWorking []models.Instance `json:"not_working"`
}

func (a *API) instances(w http.ResponseWriter, r *http.Request) {
	relay := false
	if v := r.URL.Query().Get("relay"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "relay must be a boolean", nil)
			return
		}
		relay = b
	}

	d, mode := a.direct, "direct"
	if relay {
		d, mode = a.relay, "relay"
	}
	if d == nil {
		writeError(w, http.StatusServiceUnavailable, mode+" discovery is not configured", nil)
		return
	}

	res := d.Run(r.Context(), nil, a.candidates)
	writeJSON(w, http.StatusOK, instancesResponse{Mode: mode, Working: res.Working(), NotWorking: res.NotWorking()})
}

// statusFor maps resolution errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrPlaylistNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

type errorResponse struct {
	Error    string             `json:"error"`
	Attempts []services.Attempt `json:"attempts,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, attempts []services.Attempt) {
	writeJSON(w, status, errorResponse{Error: msg, Attempts: attempts})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
