package download

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bogem/id3v2"

	"github.com/handiism/tubesync/internal/api"
	"github.com/handiism/tubesync/internal/config"
	"github.com/handiism/tubesync/internal/model"
	"github.com/handiism/tubesync/internal/monitor"
	"github.com/handiism/tubesync/internal/testutils"
)

const (
	videoURL    = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	playlistURL = "https://www.youtube.com/playlist?list=PL123"
)

type eventLog struct {
	mu     sync.Mutex
	events []model.Event
}

func (l *eventLog) add(e model.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) has(level model.Level, contains string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Level == level && strings.Contains(e.Message, contains) {
			return true
		}
	}
	return false
}

func testSettings(t *testing.T, b *testutils.Backend) *config.Settings {
	t.Helper()
	s := config.DefaultSettings()
	s.ServerURL = b.URL()
	s.RequestsPerSecond = 0
	s.PollIntervalMs = 5
	s.MaxPollFailures = 0
	s.FetchPath = t.TempDir()
	return s
}

func newTestManager(t *testing.T, s *config.Settings) (*Manager, *eventLog) {
	t.Helper()
	log := &eventLog{}
	m, err := NewManager(s, log.add, nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, log
}

func videoInfo() *model.VideoInfo {
	return &model.VideoInfo{
		Title:     "Never Gonna Give You Up",
		Uploader:  "Rick Astley",
		Duration:  213,
		Thumbnail: "",
		Formats: []model.Format{
			{FormatID: "18", Ext: "mp4", Quality: "360p", DownloadType: model.FormatCombined, VCodec: "avc1", ACodec: "mp4a"},
			{FormatID: "137", Ext: "mp4", Quality: "1080p", VCodec: "avc1", ACodec: "none"},
			{FormatID: "140", Ext: "m4a", Quality: "audio", DownloadType: model.FormatAudioOnly, VCodec: "none", ACodec: "mp4a"},
		},
	}
}

func playlistInfo() *model.VideoInfo {
	return &model.VideoInfo{
		Title:         "Road Trip",
		Uploader:      "Mixer",
		IsPlaylist:    true,
		PlaylistCount: 5,
		Formats: []model.Format{
			{FormatID: "251", Quality: "audio", DownloadType: model.FormatAudioOnly, VCodec: "none", ACodec: "opus"},
			{FormatID: "22", Quality: "720p", DownloadType: model.FormatCombined},
		},
		PlaylistEntries: []model.PlaylistEntry{
			{ID: "aaa", Title: "First Video", Uploader: "Channel A", Duration: 61},
			{ID: "bbb", Title: "Second Video", Duration: 62},
			{ID: "ccc", Title: "Third Video", Duration: 63},
		},
	}
}

func waitFinished(t *testing.T, m *Manager) model.DownloadJob {
	t.Helper()
	select {
	case job := <-m.Finished():
		return job
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
		return model.DownloadJob{}
	}
}

func TestAnalyze_Validation(t *testing.T) {
	b := testutils.NewBackend(t)
	m, _ := newTestManager(t, testSettings(t, b))

	tests := []struct {
		url  string
		want error
	}{
		{"", ErrEmptyURL},
		{"   ", ErrEmptyURL},
		{"https://vimeo.com/123", ErrInvalidURL},
		{"not a url", ErrInvalidURL},
	}
	for _, tt := range tests {
		if _, err := m.Analyze(context.Background(), tt.url); !errors.Is(err, tt.want) {
			t.Errorf("Analyze(%q) = %v, want %v", tt.url, err, tt.want)
		}
	}
	if n := b.Requests("POST /api/video-info"); n != 0 {
		t.Errorf("invalid URLs made %d requests", n)
	}
}

func TestAnalyze_BackendError(t *testing.T) {
	b := testutils.NewBackend(t)
	m, log := newTestManager(t, testSettings(t, b))

	_, err := m.Analyze(context.Background(), videoURL)
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Message != "Could not fetch video information" {
		t.Fatalf("Analyze() = %v, want backend error message", err)
	}
	if m.Info() != nil {
		t.Error("failed analysis must not replace the session info")
	}
	if !log.has(model.LevelError, "Could not fetch video information") {
		t.Error("missing error event")
	}
}

func TestAnalyze_FormatsAndQualities(t *testing.T) {
	b := testutils.NewBackend(t)
	b.AddVideo(videoURL, videoInfo())
	m, _ := newTestManager(t, testSettings(t, b))

	if _, err := m.Analyze(context.Background(), "  "+videoURL+"  "); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if got := len(m.Formats("")); got != 3 {
		t.Errorf("Formats(\"\") = %d formats, want 3", got)
	}
	if got := m.Formats("1080p"); len(got) != 1 || got[0].FormatID != "137" {
		t.Errorf("Formats(1080p) = %+v", got)
	}
	if got := m.Qualities(); strings.Join(got, ",") != "360p,1080p,audio" {
		t.Errorf("Qualities() = %v", got)
	}
}

func TestStartDownload_Errors(t *testing.T) {
	b := testutils.NewBackend(t)
	b.AddVideo(videoURL, videoInfo())
	m, _ := newTestManager(t, testSettings(t, b))
	ctx := context.Background()

	if _, err := m.StartDownload(ctx, "18"); !errors.Is(err, ErrNotAnalyzed) {
		t.Errorf("before Analyze: %v, want ErrNotAnalyzed", err)
	}

	if _, err := m.Analyze(ctx, videoURL); err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartDownload(ctx, "999"); !errors.Is(err, ErrFormatNotFound) {
		t.Errorf("unknown format: %v, want ErrFormatNotFound", err)
	}

	b.FailStarts(true)
	if _, err := m.StartDownload(ctx, "18"); err == nil {
		t.Error("expected error when the backend refuses the job")
	}
	if m.Monitor().Phase() != monitor.PhaseIdle {
		t.Errorf("monitor phase = %v after failed start, want idle", m.Monitor().Phase())
	}
}

func TestStartDownload_TracksUntilCompleted(t *testing.T) {
	b := testutils.NewBackend(t)
	b.AddVideo(videoURL, videoInfo())
	b.AddFile("Never Gonna Give You Up.m4a", []byte("audio"))
	b.Script("download_1",
		map[string]any{"status": "starting", "progress": 0},
		map[string]any{"status": "downloading", "progress": 42.5, "message": "Downloading... 42.5%"},
		map[string]any{"status": "completed", "progress": 100, "message": "Download completed!"},
	)

	s := testSettings(t, b)
	s.DownloadPath = "/srv/videos"
	m, log := newTestManager(t, s)
	ctx := context.Background()

	if _, err := m.Analyze(ctx, videoURL); err != nil {
		t.Fatal(err)
	}
	id, err := m.StartDownload(ctx, "140")
	if err != nil {
		t.Fatalf("StartDownload() error = %v", err)
	}
	if id != "download_1" {
		t.Errorf("id = %q", id)
	}

	started := b.Started()
	if len(started) != 1 {
		t.Fatalf("backend saw %d starts", len(started))
	}
	if started[0]["download_type"] != "audio" || started[0]["download_path"] != "/srv/videos" || started[0]["url"] != videoURL {
		t.Errorf("start request = %v", started[0])
	}

	job := waitFinished(t, m)
	if job.State != model.JobCompleted || job.ID != "download_1" {
		t.Errorf("finished job = %+v", job)
	}

	files := m.Downloads()
	if len(files) != 1 || files[0].Name != "Never Gonna Give You Up.m4a" {
		t.Errorf("Downloads() = %+v, want the finished file", files)
	}

	s2 := m.Indicator().Snapshot()
	if s2.Active || s2.Tone != monitor.ToneSuccess || s2.Message != monitor.CompletedMessage {
		t.Errorf("indicator = %+v", s2)
	}
	if !log.has(model.LevelSuccess, "Download started!") || !log.has(model.LevelSuccess, monitor.CompletedMessage) {
		t.Error("missing start or completion event")
	}

	// Polling has stopped.
	polls := b.Polls("download_1")
	time.Sleep(30 * time.Millisecond)
	if b.Polls("download_1") != polls {
		t.Error("progress requests continued after completion")
	}
}

func TestStartDownload_FailedJobSkipsRefresh(t *testing.T) {
	b := testutils.NewBackend(t)
	b.AddVideo(videoURL, videoInfo())
	b.Script("download_1", map[string]any{"status": "error", "progress": 0, "message": "Video unavailable"})
	m, log := newTestManager(t, testSettings(t, b))
	ctx := context.Background()

	if _, err := m.Analyze(ctx, videoURL); err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartDownload(ctx, "18"); err != nil {
		t.Fatal(err)
	}

	job := waitFinished(t, m)
	if job.State != model.JobFailed {
		t.Errorf("state = %v, want failed", job.State)
	}
	if n := b.Requests("GET /api/downloads"); n != 0 {
		t.Errorf("failed job triggered %d list requests", n)
	}
	if !log.has(model.LevelError, "Video unavailable") {
		t.Error("missing failure event")
	}
}

func TestStartDownload_SupersedesTrackedJob(t *testing.T) {
	b := testutils.NewBackend(t)
	b.AddVideo(videoURL, videoInfo())
	b.Script("download_1", map[string]any{"status": "downloading", "progress": 10})
	b.Script("download_2", map[string]any{"status": "downloading", "progress": 20})
	m, _ := newTestManager(t, testSettings(t, b))
	ctx := context.Background()

	if _, err := m.Analyze(ctx, videoURL); err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartDownload(ctx, "18"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartDownload(ctx, "18"); err != nil {
		t.Fatal(err)
	}
	if got := m.Monitor().JobID(); got != "download_2" {
		t.Fatalf("tracked job = %q, want download_2", got)
	}

	time.Sleep(30 * time.Millisecond)
	polls := b.Polls("download_1")
	time.Sleep(30 * time.Millisecond)
	if b.Polls("download_1") != polls {
		t.Error("superseded job is still polled")
	}
	if snap := m.Indicator().Snapshot(); snap.JobID != "download_2" {
		t.Errorf("indicator shows %q", snap.JobID)
	}
}

func TestStartPlaylist(t *testing.T) {
	b := testutils.NewBackend(t)
	b.AddVideo(playlistURL, playlistInfo())
	b.Script("playlist_1", map[string]any{
		"status": "downloading", "progress": 30, "message": "Downloading video 2/5",
		"total_videos": 5, "completed_videos": 1, "failed_videos": 1,
	})
	m, log := newTestManager(t, testSettings(t, b))
	ctx := context.Background()

	if _, err := m.Analyze(ctx, playlistURL); err != nil {
		t.Fatal(err)
	}
	id, err := m.StartPlaylist(ctx, "", 0)
	if err != nil {
		t.Fatalf("StartPlaylist() error = %v", err)
	}
	if id != "playlist_1" {
		t.Errorf("id = %q", id)
	}

	req := b.Started()[0]
	if req["format_id"] != "22" || req["download_type"] != "video" || req["max_videos"] != float64(5) {
		t.Errorf("start request = %v", req)
	}
	if !log.has(model.LevelSuccess, "(5 videos)") {
		t.Error("missing start event with the video count")
	}

	deadline := time.Now().Add(5 * time.Second)
	for m.Indicator().Snapshot().Renders == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no progress rendered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	msg := m.Indicator().Snapshot().Message
	if !strings.Contains(msg, "1/5 completed") || !strings.Contains(msg, "1 failed") {
		t.Errorf("indicator message = %q", msg)
	}
}

func TestStartPlaylist_Errors(t *testing.T) {
	b := testutils.NewBackend(t)
	b.AddVideo(videoURL, videoInfo())
	b.AddVideo(playlistURL, playlistInfo())
	m, _ := newTestManager(t, testSettings(t, b))
	ctx := context.Background()

	if _, err := m.Analyze(ctx, videoURL); err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartPlaylist(ctx, "", 0); !errors.Is(err, ErrNotPlaylist) {
		t.Errorf("single video: %v, want ErrNotPlaylist", err)
	}

	if _, err := m.Analyze(ctx, playlistURL); err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartPlaylist(ctx, "", 6); err == nil || !strings.Contains(err.Error(), "between 1 and 5") {
		t.Errorf("too many videos: %v", err)
	}
	if _, err := m.StartPlaylist(ctx, "nope", 2); !errors.Is(err, ErrFormatNotFound) {
		t.Errorf("unknown format: %v, want ErrFormatNotFound", err)
	}
	if n := len(b.Started()); n != 0 {
		t.Errorf("%d jobs started despite errors", n)
	}
}

func TestStartSelected(t *testing.T) {
	b := testutils.NewBackend(t)
	b.AddVideo(playlistURL, playlistInfo())
	s := testSettings(t, b)
	s.MaxConcurrentStarts = 2
	m, log := newTestManager(t, s)
	ctx := context.Background()

	info, err := m.Analyze(ctx, playlistURL)
	if err != nil {
		t.Fatal(err)
	}

	var urls []string
	for _, e := range info.PlaylistEntries {
		urls = append(urls, e.WatchURL())
	}

	sel, err := m.StartSelected(ctx, urls, "251")
	if err != nil {
		t.Fatalf("StartSelected() error = %v", err)
	}
	if sel.Started != 3 || sel.Failed != 0 || len(sel.JobIDs) != 3 {
		t.Errorf("selection = %+v", sel)
	}
	for _, req := range b.Started() {
		if req["download_type"] != "audio" || req["format_id"] != "251" {
			t.Errorf("start request = %v", req)
		}
	}
	if m.Monitor().JobID() != "" {
		t.Error("selected jobs must not be tracked")
	}
	if !log.has(model.LevelSuccess, "Successfully started 3 videos!") {
		t.Error("missing summary event")
	}
}

func TestStartSelected_CountsFailures(t *testing.T) {
	b := testutils.NewBackend(t)
	b.AddVideo(playlistURL, playlistInfo())
	m, log := newTestManager(t, testSettings(t, b))
	ctx := context.Background()

	if _, err := m.Analyze(ctx, playlistURL); err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartSelected(ctx, nil, ""); !errors.Is(err, ErrNoSelection) {
		t.Errorf("empty selection: %v, want ErrNoSelection", err)
	}

	b.FailStarts(true)
	sel, err := m.StartSelected(ctx, []string{"https://youtu.be/aaa", "https://youtu.be/bbb"}, "")
	if err != nil {
		t.Fatalf("StartSelected() error = %v", err)
	}
	if sel.Started != 0 || sel.Failed != 2 {
		t.Errorf("selection = %+v", sel)
	}
	if !log.has(model.LevelWarning, "Started 0 videos, 2 failed.") {
		t.Error("missing warning summary")
	}
}

func TestCancel_Unsupported(t *testing.T) {
	b := testutils.NewBackend(t)
	m, log := newTestManager(t, testSettings(t, b))

	if err := m.Cancel(context.Background()); !errors.Is(err, api.ErrCancelUnsupported) {
		t.Errorf("Cancel() = %v, want ErrCancelUnsupported", err)
	}
	if !log.has(model.LevelWarning, "not yet implemented") {
		t.Error("missing warning event")
	}
}

func TestDownloadPath(t *testing.T) {
	b := testutils.NewBackend(t)
	s := testSettings(t, b)
	s.DownloadPath = "downloads/"
	m, _ := newTestManager(t, s)

	m.SetDownloadPath("  /mnt/media  ")
	if got := m.DownloadPath(); got != "/mnt/media" {
		t.Errorf("DownloadPath() = %q", got)
	}
	m.ResetDownloadPath()
	if got := m.DownloadPath(); got != "downloads/" {
		t.Errorf("after reset DownloadPath() = %q", got)
	}
}

func TestDownloadType(t *testing.T) {
	b := testutils.NewBackend(t)
	s := testSettings(t, b)
	s.DownloadType = "audio"
	m, _ := newTestManager(t, s)

	if m.DownloadType() != model.DownloadAudio {
		t.Errorf("initial type = %v", m.DownloadType())
	}
	m.SetDownloadType(model.DownloadVideo)
	if m.DownloadType() != model.DownloadVideo {
		t.Errorf("type = %v", m.DownloadType())
	}
}

func TestRefreshDownloads_ErrorYieldsEmptyList(t *testing.T) {
	b := testutils.NewBackend(t)
	b.AddFile("a.mp4", []byte("a"))
	m, log := newTestManager(t, testSettings(t, b))

	if files := m.RefreshDownloads(context.Background()); len(files) != 1 {
		t.Fatalf("RefreshDownloads() = %d files, want 1", len(files))
	}

	b.Server.Close()
	if files := m.RefreshDownloads(context.Background()); len(files) != 0 {
		t.Errorf("RefreshDownloads() after outage = %+v, want empty", files)
	}
	if len(m.Downloads()) != 0 {
		t.Error("stale list kept after a failed refresh")
	}
	if !log.has(model.LevelWarning, "Error loading downloads") {
		t.Error("missing warning event")
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 36))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFetch_PlaylistTagsWritesPlaylistAndArchives(t *testing.T) {
	b := testutils.NewBackend(t)
	info := playlistInfo()
	info.PlaylistEntries[0].Thumbnail = b.AddAsset("aaa.png", testPNG(t))
	b.AddVideo(playlistURL, info)
	b.AddFile("First Video.mp3", []byte("\xff\xfbfirst mpeg frames"))
	b.AddFile("Second Video.mp4", []byte("second"))

	s := testSettings(t, b)
	s.CreatePlaylist = true
	s.PlaylistFormat = "m3u"
	s.M3UExtended = true
	s.ArchiveBucket = "mem://"
	s.ThumbnailMaxSize = 32
	m, log := newTestManager(t, s)
	ctx := context.Background()

	if _, err := m.Analyze(ctx, playlistURL); err != nil {
		t.Fatal(err)
	}
	set, err := m.Fetch(ctx, []string{"First Video.mp3", "Second Video.mp4", "missing.mp3"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	wantDir := filepath.Join(s.FetchPath, "Road Trip")
	if set.Dir != wantDir || set.Title != "Road Trip" {
		t.Errorf("set = %q in %q", set.Title, set.Dir)
	}
	if len(set.Files) != 2 || set.Files[0].Name != "First Video.mp3" || set.Files[1].Name != "Second Video.mp4" {
		t.Fatalf("fetched files = %+v", set.Files)
	}
	if !log.has(model.LevelError, "missing.mp3") || !log.has(model.LevelWarning, "1 failed") {
		t.Error("missing failure events")
	}

	data, err := os.ReadFile(filepath.Join(wantDir, "Second Video.mp4"))
	if err != nil || string(data) != "second" {
		t.Errorf("mp4 copy = %q, %v", data, err)
	}

	tag, err := id3v2.Open(filepath.Join(wantDir, "First Video.mp3"), id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tag.Close()
	if tag.Title() != "First Video" || tag.Artist() != "Channel A" || tag.Album() != "Road Trip" {
		t.Errorf("tags = %q / %q / %q", tag.Title(), tag.Artist(), tag.Album())
	}
	if n := len(tag.GetFrames(tag.CommonID("Attached picture"))); n != 1 {
		t.Errorf("got %d cover pictures, want 1", n)
	}

	playlist, err := os.ReadFile(filepath.Join(wantDir, "Road Trip.m3u"))
	if err != nil {
		t.Fatalf("playlist not written: %v", err)
	}
	if !strings.Contains(string(playlist), "#EXTINF:61,Channel A - First Video\nFirst Video.mp3\n") ||
		!strings.Contains(string(playlist), "Second Video.mp4\n") {
		t.Errorf("playlist = %q", playlist)
	}

	for _, key := range []string{"Road Trip/First Video.mp3", "Road Trip/Second Video.mp4"} {
		if ok, err := m.archiver.Exists(ctx, key); err != nil || !ok {
			t.Errorf("archive missing %q (%v)", key, err)
		}
	}
}

func TestFetch_SingleVideoWithoutTagging(t *testing.T) {
	b := testutils.NewBackend(t)
	b.AddVideo(videoURL, videoInfo())
	b.AddFile("Never Gonna Give You Up.mp3", []byte("\xff\xfbaudio"))

	s := testSettings(t, b)
	s.TagAudio = false
	m, _ := newTestManager(t, s)
	ctx := context.Background()

	if _, err := m.Analyze(ctx, videoURL); err != nil {
		t.Fatal(err)
	}
	set, err := m.Fetch(ctx, []string{"Never Gonna Give You Up.mp3"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if set.Dir != s.FetchPath || set.Title != "" {
		t.Errorf("set = %q in %q", set.Title, set.Dir)
	}
	f := set.Files[0]
	if f.Title != "Never Gonna Give You Up" || f.Uploader != "Rick Astley" || f.Size != 7 {
		t.Errorf("file = %+v", f)
	}

	data, _ := os.ReadFile(f.Path)
	if string(data) != "\xff\xfbaudio" {
		t.Error("file was modified although tagging is off")
	}
	if _, err := os.Stat(filepath.Join(s.FetchPath, "playlist.m3u")); !os.IsNotExist(err) {
		t.Error("playlist written although CreatePlaylist is off")
	}
}

func TestFetch_NothingSelected(t *testing.T) {
	b := testutils.NewBackend(t)
	m, _ := newTestManager(t, testSettings(t, b))
	if _, err := m.Fetch(context.Background(), nil); !errors.Is(err, ErrNothingToFetch) {
		t.Errorf("Fetch(nil) = %v, want ErrNothingToFetch", err)
	}
}

func TestPlaylistFormat(t *testing.T) {
	formats := []model.Format{
		{FormatID: "251", DownloadType: model.FormatAudioOnly},
		{FormatID: "299", DownloadType: model.FormatEnhanced},
		{FormatID: "22", DownloadType: model.FormatCombined},
	}

	tests := []struct {
		name    string
		formats []model.Format
		id      string
		want    string
		wantErr error
	}{
		{name: "explicit", formats: formats, id: "251", want: "251"},
		{name: "first combined or enhanced", formats: formats, want: "299"},
		{name: "fallback to first", formats: formats[:1], want: "251"},
		{name: "unknown", formats: formats, id: "x", wantErr: ErrFormatNotFound},
		{name: "empty", wantErr: ErrNoFormats},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := playlistFormat(tt.formats, tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got.FormatID != tt.want {
				t.Errorf("FormatID = %q, want %q", got.FormatID, tt.want)
			}
		})
	}
}

func TestSourceKey(t *testing.T) {
	tests := []struct{ title, file string }{
		{"Never Gonna Give You Up", "Never Gonna Give You Up.mp3"},
		{"What? Really", "What_ Really.mp4"},
		{"Episode 1.5", "Episode 1.5.m4a"},
	}
	for _, tt := range tests {
		stem := strings.TrimSuffix(tt.file, filepath.Ext(tt.file))
		if sourceKey(tt.title) != sourceKey(stem) {
			t.Errorf("%q and %q map to %q and %q", tt.title, tt.file, sourceKey(tt.title), sourceKey(stem))
		}
	}
}

func TestSessionFiles(t *testing.T) {
	b := testutils.NewBackend(t)
	b.AddVideo(playlistURL, playlistInfo())
	b.AddFile("First Video.mp3", []byte("1"))
	b.AddFile("Third Video.m4a", []byte("3"))
	b.AddFile("Unrelated.mp4", []byte("x"))

	m, _ := newTestManager(t, testSettings(t, b))
	ctx := context.Background()

	if got := m.SessionFiles(); len(got) != 0 {
		t.Errorf("SessionFiles() before analyze = %v", got)
	}
	if _, err := m.Analyze(ctx, playlistURL); err != nil {
		t.Fatal(err)
	}
	m.RefreshDownloads(ctx)

	got := m.SessionFiles()
	sort.Strings(got)
	want := []string{"First Video.mp3", "Third Video.m4a"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("SessionFiles() = %v, want %v", got, want)
	}
}

func TestFileURL(t *testing.T) {
	b := testutils.NewBackend(t)
	m, _ := newTestManager(t, testSettings(t, b))

	if got, want := m.FileURL("a b.mp4"), b.URL()+"/downloads/a%20b.mp4"; got != want {
		t.Errorf("FileURL() = %q, want %q", got, want)
	}
}
