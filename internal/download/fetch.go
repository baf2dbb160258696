package download

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/tubesync/internal/archive"
	ioutils "github.com/handiism/tubesync/internal/io"
	"github.com/handiism/tubesync/internal/model"
)

// source is what is known about the video a backend file came from.
type source struct {
	title     string
	uploader  string
	duration  float64
	thumbnail string
}

// Fetch copies the named finished files from the backend to the local
// fetch path, at most MaxConcurrentFetches at a time.
//
// MP3s are tagged when TagAudio is set, with the video thumbnail as cover
// art when EmbedThumbnail is set too. Afterwards a playlist file is written
// if CreatePlaylist is set, and every file is uploaded to the archive
// bucket if one is configured. A file that fails is reported and skipped;
// the returned set holds the files that were copied, in the given order.
func (m *Manager) Fetch(ctx context.Context, names []string) (*model.LocalSet, error) {
	if len(names) == 0 {
		return nil, ErrNothingToFetch
	}

	info := m.Info()
	set := &model.LocalSet{Dir: m.fetchDir(info)}
	if info != nil && info.IsPlaylist {
		set.Title = info.Title
	}

	if err := ioutils.EnsureDir(set.Dir); err != nil {
		m.progress(model.Event{Message: fmt.Sprintf("Error creating directory: %v", err), Level: model.LevelError})
		return nil, err
	}

	sources := sourcesOf(info)
	covers := newCoverCache()
	files := make([]*model.LocalFile, len(names))
	var failed int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, m.settings.MaxConcurrentFetches))

	for i, name := range names {
		g.Go(func() error {
			file, err := m.fetchFile(gctx, set, name, sources, covers)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				m.progress(model.Event{Message: fmt.Sprintf("Error fetching %s: %v", name, err), Level: model.LevelError})
				return nil // Continue with other files
			}
			files[i] = file
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, f := range files {
		if f != nil {
			set.Files = append(set.Files, f)
		}
	}

	if m.settings.CreatePlaylist && len(set.Files) > 0 {
		m.writePlaylist(ctx, set)
	}
	if m.archiver != nil {
		m.archive(ctx, set)
	}

	if failed == 0 {
		m.progress(model.Event{Message: fmt.Sprintf("Fetched %d files to %s", len(set.Files), set.Dir), Level: model.LevelSuccess})
	} else {
		m.progress(model.Event{Message: fmt.Sprintf("Fetched %d files, %d failed", len(set.Files), failed), Level: model.LevelWarning})
	}
	return set, nil
}

func (m *Manager) fetchFile(ctx context.Context, set *model.LocalSet, name string, sources map[string]source, covers *coverCache) (*model.LocalFile, error) {
	dst, err := ioutils.LocalPath(set.Dir, name)
	if err != nil {
		return nil, err
	}

	n, err := m.api.FetchFile(ctx, name, dst, nil)
	if err != nil {
		return nil, err
	}

	file := &model.LocalFile{Name: name, Path: dst, Size: n}
	src, known := sources[sourceKey(strings.TrimSuffix(name, filepath.Ext(name)))]
	if known {
		file.Title = src.title
		file.Uploader = src.uploader
		file.Duration = src.duration
	}
	m.progress(model.Event{Message: fmt.Sprintf("Fetched: %s (%s)", name, model.FormatFileSize(n)), Level: model.LevelVerbose})

	if file.IsMP3() && m.settings.TagAudio {
		var cover []byte
		if m.settings.EmbedThumbnail && known && src.thumbnail != "" {
			cover = covers.get(ctx, src.thumbnail, m.coverArt)
		}
		if err := m.tagger.SaveTags(file, set, cover); err != nil {
			m.progress(model.Event{Message: fmt.Sprintf("Error tagging %s: %v", name, err), Level: model.LevelWarning})
		}
	}

	return file, nil
}

// coverArt downloads a thumbnail and converts it for embedding. Failures
// are reported and yield nil, so the file is tagged without a cover.
func (m *Manager) coverArt(ctx context.Context, thumbnailURL string) []byte {
	data, err := m.api.Thumbnail(ctx, thumbnailURL)
	if err != nil {
		m.progress(model.Event{Message: fmt.Sprintf("Error downloading thumbnail: %v", err), Level: model.LevelWarning})
		return nil
	}
	cover, err := m.imageService.CoverArt(ctx, data, m.settings.ThumbnailMaxSize)
	if err != nil {
		m.progress(model.Event{Message: fmt.Sprintf("Error converting thumbnail: %v", err), Level: model.LevelWarning})
		return nil
	}
	return cover
}

func (m *Manager) writePlaylist(ctx context.Context, set *model.LocalSet) {
	path := set.PlaylistPath(m.playlist.Format())
	content := m.playlist.CreatePlaylist(set)
	if err := ioutils.WriteFile(ctx, path, []byte(content)); err != nil {
		m.progress(model.Event{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: model.LevelWarning})
		return
	}
	m.progress(model.Event{Message: "Created playlist " + filepath.Base(path), Level: model.LevelSuccess})
}

func (m *Manager) archive(ctx context.Context, set *model.LocalSet) {
	for _, f := range set.Files {
		if done, err := m.archiver.Archived(ctx, archive.Key(set.Title, f), f.Size); err == nil && done {
			m.progress(model.Event{Message: "Already archived: " + f.Name, Level: model.LevelVerbose})
			continue
		}
		key, err := m.archiver.Upload(ctx, set.Title, f)
		if err != nil {
			m.progress(model.Event{Message: fmt.Sprintf("Error archiving %s: %v", f.Name, err), Level: model.LevelWarning})
			continue
		}
		m.progress(model.Event{Message: "Archived " + key, Level: model.LevelVerbose})
	}
}

// SessionFiles returns the names of the listed downloads that belong to the
// analyzed video or playlist, matched by title.
func (m *Manager) SessionFiles() []string {
	sources := sourcesOf(m.Info())
	var names []string
	for _, f := range m.Downloads() {
		if _, ok := sources[sourceKey(strings.TrimSuffix(f.Name, filepath.Ext(f.Name)))]; ok {
			names = append(names, f.Name)
		}
	}
	return names
}

// sourcesOf indexes the analyzed video, or every playlist entry, by the
// key its downloaded file name maps to. The backend names files after the
// video title.
func sourcesOf(info *model.VideoInfo) map[string]source {
	out := make(map[string]source)
	if info == nil {
		return out
	}
	if !info.IsPlaylist {
		out[sourceKey(info.Title)] = source{
			title:     info.Title,
			uploader:  info.Uploader,
			duration:  info.Duration,
			thumbnail: info.Thumbnail,
		}
		return out
	}
	for _, e := range info.PlaylistEntries {
		uploader := e.Uploader
		if uploader == "" {
			uploader = info.Uploader
		}
		out[sourceKey(e.Title)] = source{
			title:     e.Title,
			uploader:  uploader,
			duration:  e.Duration,
			thumbnail: e.Thumbnail,
		}
	}
	return out
}

// sourceKey normalizes a title or a file name stem so both map to the
// same key.
func sourceKey(s string) string {
	return strings.ToLower(ioutils.SanitizeFileName(s))
}

// coverCache converts each thumbnail once per Fetch. Different thumbnails
// load concurrently; callers asking for the same one wait for its load.
type coverCache struct {
	mu      sync.Mutex
	entries map[string]*coverEntry
}

type coverEntry struct {
	once sync.Once
	data []byte
}

func newCoverCache() *coverCache {
	return &coverCache{entries: make(map[string]*coverEntry)}
}

func (c *coverCache) get(ctx context.Context, url string, load func(context.Context, string) []byte) []byte {
	c.mu.Lock()
	e, ok := c.entries[url]
	if !ok {
		e = &coverEntry{}
		c.entries[url] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.data = load(ctx, url)
	})
	return e.data
}
