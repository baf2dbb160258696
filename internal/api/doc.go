// Package api is a typed client for the TubeSync backend.
//
// The backend owns all video inspection and downloading. This package only
// speaks its JSON contract:
//
//	POST /api/video-info          inspect a video or playlist URL
//	POST /api/download            start a single-video job
//	POST /api/download-playlist   start a playlist job
//	GET  /api/progress/{id}       poll a job
//	GET  /api/downloads?path=     list finished files
//	GET  /downloads/{name}        fetch a finished file
//
// Error bodies of the form {"error": "..."} are returned as *Error.
// Client satisfies monitor.Fetcher through its Progress method.
package api
