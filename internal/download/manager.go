package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/tubesync/internal/api"
	"github.com/handiism/tubesync/internal/archive"
	"github.com/handiism/tubesync/internal/audio"
	"github.com/handiism/tubesync/internal/config"
	"github.com/handiism/tubesync/internal/http"
	ioutils "github.com/handiism/tubesync/internal/io"
	"github.com/handiism/tubesync/internal/model"
	"github.com/handiism/tubesync/internal/monitor"
)

// Validation errors. Their text is shown to the user as is.
var (
	ErrEmptyURL       = errors.New("Please enter a YouTube URL")
	ErrInvalidURL     = errors.New("Please enter a valid YouTube URL")
	ErrNotAnalyzed    = errors.New("Please analyze a video first")
	ErrNotPlaylist    = errors.New("Please analyze a playlist first")
	ErrNoFormats      = errors.New("No formats available for download")
	ErrFormatNotFound = errors.New("Format not found")
	ErrNoSelection    = errors.New("Please select videos to download")
	ErrNothingToFetch = errors.New("No files selected")
)

// refreshTimeout bounds the list request made after a job completes.
const refreshTimeout = 10 * time.Second

// Selection reports the outcome of StartSelected.
type Selection struct {
	Started int
	Failed  int

	// JobIDs of the started jobs, in the order of the entries.
	JobIDs []string
}

// Manager is one client session against the backend: it analyzes URLs,
// starts download jobs, tracks the active one, and copies finished files to
// the local machine.
type Manager struct {
	settings     *config.Settings
	api          *api.Client
	monitor      *monitor.Monitor
	indicator    *monitor.Indicator
	tagger       *audio.Tagger
	playlist     *audio.PlaylistCreator
	imageService *ioutils.ImageService
	archiver     *archive.Archiver

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.RWMutex
	url          string
	info         *model.VideoInfo
	downloadType model.DownloadType
	downloadPath string
	downloads    []model.DownloadedFile

	finished   chan model.DownloadJob
	onProgress func(model.Event)
}

// NewManager creates a Manager for settings. onProgress receives every
// user-facing event; onIndicator, if set, is called on every change of the
// progress indicator and must not block.
func NewManager(settings *config.Settings, onProgress func(model.Event), onIndicator func(monitor.IndicatorState)) (*Manager, error) {
	hc, err := http.NewClient(settings.ToClientOptions())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		settings:     settings,
		api:          api.NewClient(hc),
		indicator:    monitor.NewIndicator(onIndicator),
		tagger:       audio.NewTagger(audio.DefaultTagConfig()),
		playlist:     audio.NewPlaylistCreator(settings.Playlist(), settings.M3UExtended),
		imageService: ioutils.NewImageService(),
		ctx:          ctx,
		cancel:       cancel,
		downloadType: settings.Type(),
		downloadPath: settings.DownloadPath,
		finished:     make(chan model.DownloadJob, 1),
		onProgress:   onProgress,
	}

	if settings.ArchiveBucket != "" {
		m.archiver, err = archive.Open(ctx, settings.ArchiveBucket)
		if err != nil {
			cancel()
			return nil, err
		}
	}

	opts := settings.ToMonitorOptions()
	opts.Refresh = m.refreshAfterCompletion
	opts.OnFinish = m.jobFinished
	opts.OnEvent = m.progress
	m.monitor = monitor.New(m.api, m.indicator, opts)

	return m, nil
}

// Close stops tracking and releases the archive bucket.
func (m *Manager) Close() error {
	m.monitor.Stop()
	m.cancel()
	if m.archiver != nil {
		return m.archiver.Close()
	}
	return nil
}

// Indicator returns the progress indicator of the tracked job.
func (m *Manager) Indicator() *monitor.Indicator {
	return m.indicator
}

// Monitor returns the progress monitor.
func (m *Manager) Monitor() *monitor.Monitor {
	return m.monitor
}

// Finished delivers the most recent job that reached a terminal state.
// Only the latest job is kept if nobody reads.
func (m *Manager) Finished() <-chan model.DownloadJob {
	return m.finished
}

// Analyze validates rawURL and fetches its video or playlist info.
func (m *Manager) Analyze(ctx context.Context, rawURL string) (*model.VideoInfo, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrEmptyURL
	}
	if !model.IsValidYouTubeURL(rawURL) {
		return nil, ErrInvalidURL
	}

	m.progress(model.Event{Message: "Analyzing " + rawURL, Level: model.LevelVerbose})

	info, err := m.api.VideoInfo(ctx, rawURL)
	if err != nil {
		m.progress(model.Event{Message: fmt.Sprintf("Failed to analyze video: %v", err), Level: model.LevelError})
		return nil, err
	}

	m.mu.Lock()
	m.url = rawURL
	m.info = info
	m.mu.Unlock()

	if info.IsPlaylist {
		m.progress(model.Event{Message: fmt.Sprintf("Found playlist: %s (%d videos)", info.Title, info.PlaylistCount), Level: model.LevelSuccess})
	} else {
		m.progress(model.Event{Message: fmt.Sprintf("Found video: %s (%d formats)", info.Title, len(info.Formats)), Level: model.LevelSuccess})
	}
	return info, nil
}

// Info returns the last analyzed video or playlist, or nil.
func (m *Manager) Info() *model.VideoInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.info
}

// Formats returns the formats of the analyzed video with the given quality
// label. An empty quality returns all formats.
func (m *Manager) Formats(quality string) []model.Format {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.info == nil {
		return nil
	}
	return model.FilterFormatsByQuality(m.info.Formats, quality)
}

// Qualities returns the quality labels offered for the analyzed video.
func (m *Manager) Qualities() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.info == nil {
		return nil
	}
	return model.Qualities(m.info.Formats)
}

// StartDownload starts a single-video job for formatID and begins tracking
// it. It returns the job id.
func (m *Manager) StartDownload(ctx context.Context, formatID string) (string, error) {
	m.mu.RLock()
	info, rawURL, current, path := m.info, m.url, m.downloadType, m.downloadPath
	m.mu.RUnlock()

	if info == nil {
		return "", ErrNotAnalyzed
	}
	format, ok := model.FindFormat(info.Formats, formatID)
	if !ok {
		return "", ErrFormatNotFound
	}

	started, err := m.api.StartDownload(ctx, api.DownloadRequest{
		URL:          rawURL,
		FormatID:     format.FormatID,
		DownloadType: format.ResolveDownloadType(current),
		DownloadPath: path,
	})
	if err != nil {
		m.progress(model.Event{Message: fmt.Sprintf("Failed to start download: %v", err), Level: model.LevelError})
		return "", err
	}

	if err := m.monitor.Start(m.ctx, started.DownloadID); err != nil {
		return "", err
	}
	m.progress(model.Event{Message: "Download started!", Level: model.LevelSuccess, JobID: started.DownloadID})
	return started.DownloadID, nil
}

// StartPlaylist starts a playlist job and begins tracking it.
//
// An empty formatID picks the first combined format, or the first format
// when there is none. maxVideos <= 0 uses the configured limit, and when
// that is unset too, the whole playlist.
func (m *Manager) StartPlaylist(ctx context.Context, formatID string, maxVideos int) (string, error) {
	m.mu.RLock()
	info, rawURL, current, path := m.info, m.url, m.downloadType, m.downloadPath
	m.mu.RUnlock()

	if info == nil || !info.IsPlaylist {
		return "", ErrNotPlaylist
	}
	format, err := playlistFormat(info.Formats, formatID)
	if err != nil {
		return "", err
	}

	if maxVideos <= 0 {
		maxVideos = m.settings.PlaylistMaxVideos
	}
	if maxVideos <= 0 {
		maxVideos = info.PlaylistCount
	}
	if info.PlaylistCount > 0 && maxVideos > info.PlaylistCount {
		return "", fmt.Errorf("Please enter a valid number between 1 and %d", info.PlaylistCount)
	}

	started, err := m.api.StartPlaylist(ctx, api.PlaylistRequest{
		URL:          rawURL,
		FormatID:     format.FormatID,
		DownloadType: format.ResolveDownloadType(current),
		DownloadPath: path,
		MaxVideos:    maxVideos,
	})
	if err != nil {
		m.progress(model.Event{Message: fmt.Sprintf("Failed to start playlist download: %v", err), Level: model.LevelError})
		return "", err
	}

	if err := m.monitor.Start(m.ctx, started.DownloadID); err != nil {
		return "", err
	}
	m.progress(model.Event{
		Message: fmt.Sprintf("Playlist download started! (%d videos)", started.TotalVideos),
		Level:   model.LevelSuccess,
		JobID:   started.DownloadID,
	})
	return started.DownloadID, nil
}

// StartSelected starts one single-video job per entry URL. Jobs are started
// concurrently, at most MaxConcurrentStarts at a time, and are not tracked:
// their files show up in RefreshDownloads once the backend is done.
// A failed start is counted, not returned.
func (m *Manager) StartSelected(ctx context.Context, entryURLs []string, formatID string) (Selection, error) {
	m.mu.RLock()
	info, current, path := m.info, m.downloadType, m.downloadPath
	m.mu.RUnlock()

	if info == nil || !info.IsPlaylist {
		return Selection{}, ErrNotPlaylist
	}
	if len(entryURLs) == 0 {
		return Selection{}, ErrNoSelection
	}
	format, err := playlistFormat(info.Formats, formatID)
	if err != nil {
		return Selection{}, err
	}
	downloadType := format.ResolveDownloadType(current)

	m.progress(model.Event{Message: fmt.Sprintf("Starting download of %d selected videos...", len(entryURLs)), Level: model.LevelInfo})

	ids := make([]string, len(entryURLs))
	var failed int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, m.settings.MaxConcurrentStarts))

	for i, entryURL := range entryURLs {
		g.Go(func() error {
			started, err := m.api.StartDownload(gctx, api.DownloadRequest{
				URL:          entryURL,
				FormatID:     format.FormatID,
				DownloadType: downloadType,
				DownloadPath: path,
			})
			if err != nil {
				atomic.AddInt32(&failed, 1)
				m.progress(model.Event{Message: fmt.Sprintf("Failed: %s: %v", entryURL, err), Level: model.LevelError})
				return nil // Continue with other entries
			}
			ids[i] = started.DownloadID
			m.progress(model.Event{Message: "Started: " + entryURL, Level: model.LevelVerbose, JobID: started.DownloadID})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Selection{}, err
	}

	sel := Selection{Failed: int(failed)}
	for _, id := range ids {
		if id != "" {
			sel.JobIDs = append(sel.JobIDs, id)
		}
	}
	sel.Started = len(sel.JobIDs)

	if sel.Failed == 0 {
		m.progress(model.Event{Message: fmt.Sprintf("Successfully started %d videos!", sel.Started), Level: model.LevelSuccess})
	} else {
		m.progress(model.Event{Message: fmt.Sprintf("Started %d videos, %d failed.", sel.Started, sel.Failed), Level: model.LevelWarning})
	}
	return sel, ctx.Err()
}

// Cancel reports that the backend cannot cancel jobs. Tracking continues.
func (m *Manager) Cancel(ctx context.Context) error {
	err := m.api.Cancel(ctx, m.monitor.JobID())
	m.progress(model.Event{Message: "Download cancellation not yet implemented", Level: model.LevelWarning})
	return err
}

// RefreshDownloads reloads the list of finished files in the download
// path. On error the list is emptied and an event is emitted.
func (m *Manager) RefreshDownloads(ctx context.Context) []model.DownloadedFile {
	m.mu.RLock()
	path := m.downloadPath
	m.mu.RUnlock()

	files, err := m.api.ListDownloads(ctx, path)
	if err != nil {
		m.progress(model.Event{Message: fmt.Sprintf("Error loading downloads: %v", err), Level: model.LevelWarning})
		files = nil
	}

	m.mu.Lock()
	m.downloads = files
	m.mu.Unlock()

	return files
}

// Downloads returns the list loaded by the last RefreshDownloads.
func (m *Manager) Downloads() []model.DownloadedFile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.DownloadedFile, len(m.downloads))
	copy(out, m.downloads)
	return out
}

// FileURL returns the URL a finished file is served from.
func (m *Manager) FileURL(name string) string {
	return m.api.FileURL(name)
}

// SetDownloadType sets the type requested for formats that carry both or
// neither stream kind.
func (m *Manager) SetDownloadType(t model.DownloadType) {
	m.mu.Lock()
	m.downloadType = t
	m.mu.Unlock()
}

// DownloadType returns the session's download type.
func (m *Manager) DownloadType() model.DownloadType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.downloadType
}

// SetDownloadPath sets the directory on the backend host new jobs write to.
func (m *Manager) SetDownloadPath(path string) {
	m.mu.Lock()
	m.downloadPath = strings.TrimSpace(path)
	m.mu.Unlock()
	m.progress(model.Event{Message: "Download path updated successfully!", Level: model.LevelSuccess})
}

// ResetDownloadPath restores the configured download path.
func (m *Manager) ResetDownloadPath() {
	m.mu.Lock()
	m.downloadPath = m.settings.DownloadPath
	m.mu.Unlock()
	m.progress(model.Event{Message: "Download path reset to default", Level: model.LevelInfo})
}

// DownloadPath returns the backend download path; empty means the
// backend's default.
func (m *Manager) DownloadPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.downloadPath
}

func (m *Manager) refreshAfterCompletion() {
	ctx, cancel := context.WithTimeout(m.ctx, refreshTimeout)
	defer cancel()
	m.RefreshDownloads(ctx)
}

func (m *Manager) jobFinished(job model.DownloadJob) {
	select {
	case <-m.finished:
	default:
	}
	select {
	case m.finished <- job:
	default:
	}
}

func (m *Manager) progress(event model.Event) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}

// playlistFormat returns the format with id formatID, or when it is empty
// the first combined format, falling back to the first format.
func playlistFormat(formats []model.Format, formatID string) (model.Format, error) {
	if len(formats) == 0 {
		return model.Format{}, ErrNoFormats
	}
	if formatID != "" {
		f, ok := model.FindFormat(formats, formatID)
		if !ok {
			return model.Format{}, ErrFormatNotFound
		}
		return f, nil
	}
	for _, f := range formats {
		if f.DownloadType == model.FormatCombined || f.DownloadType == model.FormatEnhanced {
			return f, nil
		}
	}
	return formats[0], nil
}

// fetchDir returns where files of the current session are copied to:
// a folder named after the playlist, or the fetch path itself.
func (m *Manager) fetchDir(info *model.VideoInfo) string {
	if info != nil && info.IsPlaylist {
		if name := ioutils.SanitizeFileName(info.Title); name != "" {
			return filepath.Join(m.settings.FetchPath, name)
		}
	}
	return m.settings.FetchPath
}
