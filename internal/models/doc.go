// Package models defines the canonical playlist model shared by every backend adapter, plus the entities persisted by the todo list.
//
// The package contains two categories of types:
//
// 1. Normalized values produced fresh on every resolution call and never mutated afterwards:
//   - [Video] : a single playlist entry with a relative watch path and a non-negative duration
//   - [Playlist] : playlist metadata with its videos in upstream order
//   - [Instance] : the outcome of probing one mirror candidate
//
// 2. Persistent entities owned by the local todo list:
//   - [TodoItem] : a video with completion state, keyed by its watch path
//
// [BackendKind] is a discriminated tag set only after a response body has been validated structurally.
// It is never derived from a hostname.
package models
