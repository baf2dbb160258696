package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/handiism/tubesync/internal/http"
	"github.com/handiism/tubesync/internal/model"
)

var (
	// ErrCancelUnsupported is returned by Cancel. The backend has no
	// cancellation endpoint, so no request is made.
	ErrCancelUnsupported = errors.New("api: download cancellation is not supported by the server")

	// ErrNotFound is matched by errors.Is for 404 responses.
	ErrNotFound = errors.New("api: not found")
)

// Error is a non-2xx backend response. Message is the backend's
// {"error": ...} text when present.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

// DownloadRequest is the body of POST /api/download.
type DownloadRequest struct {
	URL          string             `json:"url"`
	FormatID     string             `json:"format_id"`
	DownloadType model.DownloadType `json:"download_type"`
	DownloadPath string             `json:"download_path,omitempty"`
}

// PlaylistRequest is the body of POST /api/download-playlist.
type PlaylistRequest struct {
	URL          string             `json:"url"`
	FormatID     string             `json:"format_id"`
	DownloadType model.DownloadType `json:"download_type"`
	DownloadPath string             `json:"download_path,omitempty"`
	MaxVideos    int                `json:"max_videos,omitempty"`
}

// Started is the response to both download endpoints.
type Started struct {
	DownloadID  string `json:"download_id"`
	Message     string `json:"message"`
	TotalVideos int    `json:"total_videos,omitempty"`
}

// Client is a typed client for the TubeSync backend REST API.
//
// Example:
//
//	hc, _ := http.NewClient(http.DefaultOptions())
//	c := api.NewClient(hc)
//	info, err := c.VideoInfo(ctx, "https://www.youtube.com/watch?v=...")
type Client struct {
	http *http.Client
}

// NewClient creates a Client on top of an http.Client.
func NewClient(hc *http.Client) *Client {
	return &Client{http: hc}
}

// VideoInfo asks the backend to inspect a video or playlist URL.
func (c *Client) VideoInfo(ctx context.Context, videoURL string) (*model.VideoInfo, error) {
	var info model.VideoInfo
	err := c.http.PostJSON(ctx, "/api/video-info", map[string]string{"url": videoURL}, &info)
	if err != nil {
		return nil, convertError(err)
	}
	return &info, nil
}

// StartDownload creates a single-video download job.
func (c *Client) StartDownload(ctx context.Context, req DownloadRequest) (*Started, error) {
	var out Started
	if err := c.http.PostJSON(ctx, "/api/download", req, &out); err != nil {
		return nil, convertError(err)
	}
	if out.DownloadID == "" {
		return nil, errors.New("api: server did not return a download id")
	}
	return &out, nil
}

// StartPlaylist creates a playlist download job.
func (c *Client) StartPlaylist(ctx context.Context, req PlaylistRequest) (*Started, error) {
	var out Started
	if err := c.http.PostJSON(ctx, "/api/download-playlist", req, &out); err != nil {
		return nil, convertError(err)
	}
	if out.DownloadID == "" {
		return nil, errors.New("api: server did not return a download id")
	}
	return &out, nil
}

// Progress returns the current status of a job.
func (c *Client) Progress(ctx context.Context, jobID string) (*model.Status, error) {
	var st model.Status
	if err := c.http.GetJSON(ctx, "/api/progress/"+url.PathEscape(jobID), &st); err != nil {
		return nil, convertError(err)
	}
	return &st, nil
}

// ListDownloads returns the finished files in dir, newest first.
func (c *Client) ListDownloads(ctx context.Context, dir string) ([]model.DownloadedFile, error) {
	path := "/api/downloads"
	if dir != "" {
		path += "?path=" + url.QueryEscape(dir)
	}

	var files []model.DownloadedFile
	if err := c.http.GetJSON(ctx, path, &files); err != nil {
		return nil, convertError(err)
	}
	model.SortDownloadsNewestFirst(files)
	return files, nil
}

// FileURL returns the URL a finished file is served from.
func (c *Client) FileURL(name string) string {
	return c.http.URL("/downloads/" + url.PathEscape(name))
}

// FetchFile copies a finished file from the backend to destPath.
func (c *Client) FetchFile(ctx context.Context, name, destPath string, onProgress func(written, total int64)) (int64, error) {
	n, err := c.http.DownloadFile(ctx, "/downloads/"+url.PathEscape(name), destPath, onProgress)
	if err != nil {
		return n, convertError(err)
	}
	return n, nil
}

// Thumbnail downloads an image from an absolute URL.
func (c *Client) Thumbnail(ctx context.Context, imageURL string) ([]byte, error) {
	data, err := c.http.Get(ctx, imageURL)
	if err != nil {
		return nil, convertError(err)
	}
	return data, nil
}

// Cancel always returns ErrCancelUnsupported.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	return ErrCancelUnsupported
}

func convertError(err error) error {
	var se *http.StatusError
	if !errors.As(err, &se) {
		return err
	}

	apiErr := &Error{StatusCode: se.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(se.Body, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(se.Body))
		if len(apiErr.Message) > 200 {
			apiErr.Message = apiErr.Message[:200]
		}
	}
	return apiErr
}
