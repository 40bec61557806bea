// Package server exposes playlist resolution and mirror discovery over a small JSON API.
//
// # Router
//
// [BasicRouter] is a thin layer over [http.ServeMux] that applies a [Middleware] stack to every
// handler it registers. Handlers that serve several paths implement [Handler] and list their
// patterns from Routes.
//
// # Endpoints
//
//	GET /health                              liveness probe
//	GET /api/playlist?ref=&key=&mirror=      resolve a playlist reference
//	GET /api/instances?relay=true|false      probe the configured mirror candidates
//
// Errors are returned as {"error": "..."} with the mirror attempt trace attached when one exists.
// Invalid references map to 400, missing playlists to 404 and other upstream failures to 502.
package server
