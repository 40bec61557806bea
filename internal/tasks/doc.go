// Package tasks runs the long-running operations of tubetodo with non-blocking progress reporting.
//
// # Operations
//
//  1. [PlaylistEngine.Import] : resolve a playlist and merge it into the todo list
//     - Resolves through any [PlaylistResolver] (normally [services.Resolver])
//     - Merges by video URL so completion state survives re-imports
//
//  2. [PlaylistEngine.BulkExport] : resolve many playlists and write them to disk
//     - Resolutions are rate limited with [rate.Limiter]
//     - A worker pool writes csv, markdown, txt or json files
//     - A manifest records every reference, failed ones included
//
//  3. [Discovery.Run] : probe mirror candidates concurrently
//     - One goroutine per candidate, optionally capped
//     - Every request owns its timeout; a slow candidate only fails itself
//     - [DirectProber] tries the shape A layout then shape B against the candidate
//     - [RelayProber] goes through a CORS relay: stats first, then the canary's title
//
// # Progress Reporting
//
// All operations accept an optional channel of [ProgressUpdate]. Sends use select with default, so a
// slow or absent reader never blocks an operation.
//
// # Probe failures
//
// Failed candidates carry a [models.ProbeFailure]: timeout, transport_error, non_success_status,
// malformed_body or schema_mismatch, plus the stage that failed.
package tasks
