// Package http provides the HTTP client used to talk to the TubeSync backend.
//
// The Client in this package handles:
//   - Resolving request paths against the configured server URL
//   - Pacing requests with a token bucket (golang.org/x/time/rate)
//   - Tagging each request with X-Request-ID and X-Session-ID headers
//   - JSON request/response helpers
//   - File downloads with progress tracking
//
// # Basic Usage
//
//	client, err := http.NewClient(http.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var files []model.DownloadedFile
//	err = client.GetJSON(ctx, "/api/downloads?path=downloads/", &files)
//
// # Errors
//
// Non-2xx responses are returned as *StatusError, which keeps the start of
// the response body so callers can extract the backend's {"error": ...}
// message.
package http
