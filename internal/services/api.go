package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tubetodo/internal/shared"
)

const userAgent = "tubetodo/1.0"

// maxBodySize caps how much of an upstream body is read. Large playlists on mirrors run to a few MB.
const maxBodySize = 32 << 20

// APIService performs raw GET requests against absolute URLs and captures the response.
//
// It is the transport shared by the playlist adapters, the discovery probers and the "api get" command.
type APIService struct {
	httpClient *http.Client
	logger     *log.Logger
}

// NewAPIService creates a new API service. A nil client means [http.DefaultClient].
func NewAPIService(client *http.Client, logger *log.Logger) *APIService {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &APIService{httpClient: client, logger: logger}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
	Elapsed    time.Duration
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request to rawURL and returns the raw response.
//
// Only transport failures are errors; any HTTP status is returned as a response.
func (a *APIService) Get(ctx context.Context, rawURL string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", redactURLError(err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		err = redactURLError(err)
		a.logger.Debug("request failed", "url", redactKey(rawURL), "err", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Elapsed:    time.Since(start),
	}

	var jsonData any
	if err := json.Unmarshal(body, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	a.logger.Debug("GET", "url", redactKey(rawURL), "status", resp.StatusCode, "elapsed", apiResp.Elapsed)
	return apiResp, nil
}

// redactURLError hides the api key in the URL that [url.Error] prints.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = redactKey(urlErr.URL)
	}
	return err
}
