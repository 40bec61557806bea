package services

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/desertthunder/tubetodo/internal/models"
)

// shape A (Piped) playlist body
const pipedSchema = `{
	"type": "object",
	"required": ["name", "relatedStreams"],
	"properties": {
		"name": {"type": "string"},
		"relatedStreams": {"type": "array"}
	}
}`

// shape B (Invidious) playlist body
const invidiousSchema = `{
	"type": "object",
	"required": ["title", "videos"],
	"properties": {
		"title": {"type": "string"},
		"videos": {"type": "array"}
	}
}`

// a canary probe only needs an identifying title field, either family
const titleMarkerSchema = `{
	"type": "object",
	"anyOf": [
		{"required": ["title"], "properties": {"title": {"type": "string"}}},
		{"required": ["name"], "properties": {"name": {"type": "string"}}}
	]
}`

const titleOnlySchema = `{
	"type": "object",
	"required": ["title"],
	"properties": {"title": {"type": "string"}}
}`

// Invidious /api/v1/stats body
const statsSchema = `{
	"type": "object",
	"required": ["software"],
	"properties": {
		"software": {
			"type": "object",
			"required": ["name"],
			"properties": {"name": {"const": "invidious"}}
		}
	}
}`

var (
	pipedShape     = jsonschema.MustCompileString("piped.json", pipedSchema)
	invidiousShape = jsonschema.MustCompileString("invidious.json", invidiousSchema)
	titleMarker    = jsonschema.MustCompileString("marker.json", titleMarkerSchema)
	titleOnly      = jsonschema.MustCompileString("title.json", titleOnlySchema)
	statsShape     = jsonschema.MustCompileString("stats.json", statsSchema)
)

// ErrMalformedBody is returned when a body is not JSON at all.
var ErrMalformedBody = errors.New("response body is not valid JSON")

// ErrShapeMismatch is returned when a JSON body matches none of the expected shapes.
var ErrShapeMismatch = errors.New("response body matches no known playlist shape")

// decodeJSON unmarshals body into the generic form jsonschema validates.
func decodeJSON(body []byte) (any, error) {
	if !json.Valid(body) {
		return nil, ErrMalformedBody
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, ErrMalformedBody
	}
	return v, nil
}

// DetectShape classifies a playlist body by structure alone.
//
// A body is shape A when it has a string "name" and a "relatedStreams" array, shape B when it has a
// string "title" and a "videos" array. Shape A is checked first.
func DetectShape(body []byte) (models.BackendKind, error) {
	v, err := decodeJSON(body)
	if err != nil {
		return models.KindUnknown, err
	}
	switch {
	case pipedShape.Validate(v) == nil:
		return models.KindPiped, nil
	case invidiousShape.Validate(v) == nil:
		return models.KindInvidious, nil
	default:
		return models.KindUnknown, ErrShapeMismatch
	}
}

// HasProbeMarker reports whether a probe body is JSON carrying a string "title" or "name".
// With requireTitle set, only "title" counts.
func HasProbeMarker(body []byte, requireTitle bool) error {
	v, err := decodeJSON(body)
	if err != nil {
		return err
	}
	schema := titleMarker
	if requireTitle {
		schema = titleOnly
	}
	if schema.Validate(v) != nil {
		return ErrShapeMismatch
	}
	return nil
}

// IsInvidiousStats reports whether body is an Invidious stats document.
func IsInvidiousStats(body []byte) error {
	v, err := decodeJSON(body)
	if err != nil {
		return err
	}
	if statsShape.Validate(v) != nil {
		return ErrShapeMismatch
	}
	return nil
}
