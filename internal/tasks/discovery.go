package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tubetodo/internal/models"
	"github.com/desertthunder/tubetodo/internal/services"
	"github.com/desertthunder/tubetodo/internal/shared"
)

// Defaults for a discovery run.
const (
	DefaultCanaryPlaylist = "PL4cUxeGkcC9l0Jnx0_oMEa_J8v_z_yD5E"
	DefaultRelayURL       = "https://api.allorigins.win"
	DefaultProbeTimeout   = 8 * time.Second
)

// Getter performs a raw GET. Implemented by [services.APIService].
type Getter interface {
	Get(ctx context.Context, rawURL string) (*services.APIResponse, error)
}

// Prober checks whether one mirror candidate can serve playlists.
//
// Probe never returns an error: failures are recorded on the returned instance.
type Prober interface {
	Probe(ctx context.Context, base string) models.Instance
}

// ProbeOpts configures both probers.
//
// Timeout bounds each request, not the whole probe. Both probers issue at most two sequential
// requests per candidate, so one candidate holds a worker for at most twice Timeout.
type ProbeOpts struct {
	Canary  string        // playlist used for the health check
	Timeout time.Duration // per request
}

func (o ProbeOpts) withDefaults() ProbeOpts {
	if o.Canary == "" {
		o.Canary = DefaultCanaryPlaylist
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultProbeTimeout
	}
	return o
}

type probeStep struct {
	name         string
	path         string
	kind         models.BackendKind // family served by this layout
	requireTitle bool
}

// shape A accepts either title marker, shape B needs "title"
var directSteps = []probeStep{
	{name: "piped", path: "/playlists/%s", kind: models.KindPiped},
	{name: "invidious", path: "/api/v1/playlists/%s", kind: models.KindInvidious, requireTitle: true},
}

// DirectProber requests the canary playlist from the candidate itself, shape A layout first.
type DirectProber struct {
	api  Getter
	opts ProbeOpts
}

// NewDirectProber creates a prober that talks to candidates directly.
func NewDirectProber(api Getter, opts ProbeOpts) *DirectProber {
	return &DirectProber{api: api, opts: opts.withDefaults()}
}

// Probe tries each layout in order; the candidate is working as soon as one step passes.
func (p *DirectProber) Probe(ctx context.Context, base string) (inst models.Instance) {
	inst.BaseURL = base
	start := time.Now()
	defer func() { inst.Latency = time.Since(start) }()

	var last *shared.ProbeError
	for _, step := range directSteps {
		target := base + fmt.Sprintf(step.path, url.PathEscape(p.opts.Canary))
		resp, perr := fetchProbe(ctx, p.api, step.name, target, p.opts.Timeout)
		if perr == nil {
			perr = checkMarker(step, resp)
		}
		if perr == nil {
			inst.Healthy = true
			inst.Stage = step.name
			inst.Status = resp.StatusCode
			inst.Kind = stepKind(step, resp.Body)
			return inst
		}
		last = perr
		if ctx.Err() != nil {
			break
		}
	}

	recordFailure(&inst, last)
	return inst
}

// stepKind prefers the family a full playlist body proves. A bare title marker proves only that
// the step's layout answered, so the step's family is used.
func stepKind(step probeStep, body []byte) models.BackendKind {
	if kind, err := services.DetectShape(body); err == nil {
		return kind
	}
	return step.kind
}

func checkMarker(step probeStep, resp *services.APIResponse) *shared.ProbeError {
	if err := services.HasProbeMarker(resp.Body, step.requireTitle); err != nil {
		return classifyBody(step.name, resp.StatusCode, err)
	}
	return nil
}

// RelayProber checks Invidious candidates through a CORS relay in two stages.
//
// Stage "stats" must return an Invidious stats document and supplies the popularity metric. Stage
// "playlist" requests the canary's title and only runs when stats passed.
type RelayProber struct {
	api   Getter
	relay string
	opts  ProbeOpts
}

// NewRelayProber creates a prober that reaches candidates through relay (default [DefaultRelayURL]).
func NewRelayProber(api Getter, relay string, opts ProbeOpts) *RelayProber {
	relay = strings.TrimRight(strings.TrimSpace(relay), "/")
	if relay == "" {
		relay = DefaultRelayURL
	}
	return &RelayProber{api: api, relay: relay, opts: opts.withDefaults()}
}

func (p *RelayProber) relayed(target string) string {
	return p.relay + "/raw?url=" + url.QueryEscape(target)
}

type statsDoc struct {
	Usage struct {
		Users struct {
			Total *float64 `json:"total"`
		} `json:"users"`
	} `json:"usage"`
}

func (p *RelayProber) Probe(ctx context.Context, base string) (inst models.Instance) {
	inst.BaseURL = base
	start := time.Now()
	defer func() { inst.Latency = time.Since(start) }()

	resp, perr := fetchProbe(ctx, p.api, "stats", p.relayed(base+"/api/v1/stats"), p.opts.Timeout)
	if perr == nil {
		if err := services.IsInvidiousStats(resp.Body); err != nil {
			perr = classifyBody("stats", resp.StatusCode, err)
		}
	}
	if perr != nil {
		recordFailure(&inst, perr)
		return inst
	}

	var stats statsDoc
	if err := json.Unmarshal(resp.Body, &stats); err == nil {
		if total := stats.Usage.Users.Total; total != nil && *total >= 0 && *total <= math.MaxInt32 {
			users := int(*total)
			inst.Users = &users
		}
	}

	target := base + fmt.Sprintf("/api/v1/playlists/%s?fields=title", url.PathEscape(p.opts.Canary))
	resp, perr = fetchProbe(ctx, p.api, "playlist", p.relayed(target), p.opts.Timeout)
	if perr == nil {
		perr = checkMarker(probeStep{name: "playlist", requireTitle: true}, resp)
	}
	if perr != nil {
		recordFailure(&inst, perr)
		return inst
	}

	inst.Healthy = true
	inst.Kind = models.KindInvidious
	inst.Stage = "playlist"
	inst.Status = resp.StatusCode
	return inst
}

// fetchProbe performs one GET bounded by its own timeout and classifies transport and status failures.
func fetchProbe(ctx context.Context, api Getter, stage, target string, timeout time.Duration) (*services.APIResponse, *shared.ProbeError) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := api.Get(reqCtx, target)
	if err != nil {
		failure := models.ProbeTransportError
		if isTimeout(err) {
			failure = models.ProbeTimeout
		}
		return nil, &shared.ProbeError{Failure: failure, Stage: stage, Err: err}
	}
	if !resp.OK() {
		return nil, &shared.ProbeError{
			Failure: models.ProbeNonSuccessStatus, Stage: stage, Status: resp.StatusCode,
			Err: fmt.Errorf("API Error: %d", resp.StatusCode),
		}
	}
	return resp, nil
}

func classifyBody(stage string, status int, err error) *shared.ProbeError {
	failure := models.ProbeSchemaMismatch
	if errors.Is(err, services.ErrMalformedBody) {
		failure = models.ProbeMalformedBody
	}
	return &shared.ProbeError{Failure: failure, Stage: stage, Status: status, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func recordFailure(inst *models.Instance, perr *shared.ProbeError) {
	if perr == nil {
		return
	}
	inst.Healthy = false
	inst.LastError = perr.Failure
	inst.Stage = perr.Stage
	inst.Status = perr.Status
	inst.Message = perr.Error()
}

// NormalizeCandidate turns a bare host into an https base URL and strips trailing slashes.
func NormalizeCandidate(c string) string {
	c = strings.TrimRight(strings.TrimSpace(c), "/")
	if c == "" {
		return ""
	}
	if !strings.Contains(c, "://") {
		c = "https://" + c
	}
	return c
}

// DiscoveryResult holds one instance per candidate, in candidate order.
type DiscoveryResult struct {
	Instances []models.Instance `json:"instances"`
}

// Working returns the healthy instances ranked by popularity, highest first. Ties keep candidate order.
func (r *DiscoveryResult) Working() []models.Instance {
	working := []models.Instance{}
	for _, inst := range r.Instances {
		if inst.Healthy {
			working = append(working, inst)
		}
	}
	slices.SortStableFunc(working, func(a, b models.Instance) int {
		return b.Popularity() - a.Popularity()
	})
	return working
}

// NotWorking returns the failed instances in candidate order.
func (r *DiscoveryResult) NotWorking() []models.Instance {
	failed := []models.Instance{}
	for _, inst := range r.Instances {
		if !inst.Healthy {
			failed = append(failed, inst)
		}
	}
	return failed
}

// Discovery probes mirror candidates concurrently.
type Discovery struct {
	prober         Prober
	maxConcurrency int
	logger         *log.Logger
}

// NewDiscovery creates a runner. maxConcurrency caps in-flight probes; 0 probes every candidate at once.
func NewDiscovery(prober Prober, maxConcurrency int, logger *log.Logger) *Discovery {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Discovery{
		prober:         prober,
		maxConcurrency: maxConcurrency,
		logger:         shared.WithLogger(logger, "component", "discovery"),
	}
}

type indexedInstance struct {
	index    int
	instance models.Instance
}

// Run probes every candidate and waits for all of them. A single failure never aborts the run.
//
// Candidates are normalized with [NormalizeCandidate]; blanks are skipped. Canceling ctx makes
// in-flight probes fail fast, and those candidates are reported as not working.
func (d *Discovery) Run(ctx context.Context, progress chan<- ProgressUpdate, candidates []string) *DiscoveryResult {
	bases := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if base := NormalizeCandidate(c); base != "" {
			bases = append(bases, base)
		}
	}

	total := len(bases)
	sendProgress(progress, probeStartedUpdate(total))

	var sem chan struct{}
	if d.maxConcurrency > 0 {
		sem = make(chan struct{}, d.maxConcurrency)
	}

	results := make(chan indexedInstance, total)
	var wg sync.WaitGroup
	for i, base := range bases {
		wg.Add(1)
		go func(i int, base string) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			results <- indexedInstance{index: i, instance: d.prober.Probe(ctx, base)}
		}(i, base)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := &DiscoveryResult{Instances: make([]models.Instance, total)}
	done := 0
	for r := range results {
		done++
		out.Instances[r.index] = r.instance
		sendProgress(progress, probedUpdate(done, total, r.instance))
		if r.instance.Healthy {
			d.logger.Debug("instance working", "base", r.instance.BaseURL, "kind", r.instance.Kind, "latency", r.instance.Latency)
		} else {
			d.logger.Debug("instance failed", "base", r.instance.BaseURL, "reason", r.instance.LastError, "stage", r.instance.Stage)
		}
	}

	d.logger.Info("discovery finished", "candidates", total, "working", len(out.Working()))
	return out
}
