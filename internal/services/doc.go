// Package services resolves YouTube playlist references into a canonical [models.Playlist].
//
// # Source selection
//
// [Resolver] routes a request to the first-party [DataAPIService] when the caller supplies something that
// looks like an API key, and to the community [MirrorService] otherwise. There is no fallback between them.
//
// # Data API
//
// [DataAPIService] pages through playlistItems 50 at a time. Durations for each page come from one videos
// lookup that overlaps the fetch of the next page. Any failure aborts the whole call.
//
// # Mirrors
//
// [MirrorService] tries the Piped layout, then the Invidious layout, against one base URL. Each response body is
// validated against the two playlist shapes with JSON Schema ([DetectShape]) and the matching mapper runs.
// Every try is recorded as an [Attempt].
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.InputError] : reference is neither a playlist URL nor an id, raised before any request
//   - [shared.BackendError] : upstream refused or returned an unusable body; 404 unwraps to [shared.ErrPlaylistNotFound]
//   - [AttemptsError] : every mirror step failed, unwraps to the last BackendError
package services
