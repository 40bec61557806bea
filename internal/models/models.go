// package models defines the data model for the playlist todo service
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Video is one playlist entry normalized from any backend.
type Video struct {
	Title     string `json:"title"`
	URL       string `json:"url"`      // relative watch path, e.g. /watch?v=abc
	Duration  int    `json:"duration"` // seconds, never negative
	Thumbnail string `json:"thumbnail"`
	Uploader  string `json:"uploader"`
}

// Playlist is the canonical playlist returned by every adapter.
type Playlist struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Uploader    string  `json:"uploader"`
	Description string  `json:"description"`
	Videos      []Video `json:"videos"`
	NextPage    string  `json:"nextpage,omitempty"`
}

// TotalDuration sums the duration of every video in seconds.
func (p *Playlist) TotalDuration() int {
	total := 0
	for _, v := range p.Videos {
		total += v.Duration
	}
	return total
}

// BackendKind identifies which mirror family a response body belongs to.
type BackendKind int

const (
	KindUnknown   BackendKind = iota
	KindPiped                 // shape A: {name, uploader, relatedStreams}
	KindInvidious             // shape B: {title, author, videos}
)

func (k BackendKind) String() string {
	switch k {
	case KindPiped:
		return "piped"
	case KindInvidious:
		return "invidious"
	default:
		return "unknown"
	}
}

// MarshalText lets kinds round-trip through JSON and the instance cache.
func (k BackendKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the output of [BackendKind.String].
func (k *BackendKind) UnmarshalText(b []byte) error {
	kind, err := ParseBackendKind(string(b))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseBackendKind parses "piped", "invidious" or "unknown".
func ParseBackendKind(s string) (BackendKind, error) {
	switch s {
	case "piped":
		return KindPiped, nil
	case "invidious":
		return KindInvidious, nil
	case "unknown", "":
		return KindUnknown, nil
	default:
		return KindUnknown, fmt.Errorf("unknown backend kind %q", s)
	}
}

// ProbeFailure classifies why a mirror candidate was not usable.
type ProbeFailure string

const (
	ProbeOK               ProbeFailure = ""
	ProbeTimeout          ProbeFailure = "timeout"
	ProbeTransportError   ProbeFailure = "transport_error"
	ProbeNonSuccessStatus ProbeFailure = "non_success_status"
	ProbeMalformedBody    ProbeFailure = "malformed_body"
	ProbeSchemaMismatch   ProbeFailure = "schema_mismatch"
)

// Instance is the outcome of probing one mirror candidate during a discovery run.
type Instance struct {
	BaseURL   string        `json:"base_url"`
	Kind      BackendKind   `json:"kind"`
	Healthy   bool          `json:"healthy"`
	Users     *int          `json:"users,omitempty"` // popularity metric, relay probes only
	LastError ProbeFailure  `json:"last_error,omitempty"`
	Stage     string        `json:"stage,omitempty"`
	Status    int           `json:"status,omitempty"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency"`
}

// Popularity returns the popularity metric or 0 when none was fetched.
func (i Instance) Popularity() int {
	if i.Users == nil {
		return 0
	}
	return *i.Users
}
