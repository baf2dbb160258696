package model

import (
	"path/filepath"
	"regexp"
	"strings"
)

// PlaylistFormat is the file format written for a fetched set.
type PlaylistFormat int

const (
	PlaylistFormatM3U PlaylistFormat = iota
	PlaylistFormatPLS
	PlaylistFormatWPL
	PlaylistFormatZPL
)

// ParsePlaylistFormat maps a settings value ("m3u", "pls", "wpl", "zpl")
// to a PlaylistFormat. Unknown values fall back to M3U.
func ParsePlaylistFormat(s string) PlaylistFormat {
	switch strings.ToLower(s) {
	case "pls":
		return PlaylistFormatPLS
	case "wpl":
		return PlaylistFormatWPL
	case "zpl":
		return PlaylistFormatZPL
	default:
		return PlaylistFormatM3U
	}
}

// Extension returns the file extension, including the dot.
func (pf PlaylistFormat) Extension() string {
	switch pf {
	case PlaylistFormatPLS:
		return ".pls"
	case PlaylistFormatWPL:
		return ".wpl"
	case PlaylistFormatZPL:
		return ".zpl"
	default:
		return ".m3u"
	}
}

// LocalFile is a finished download copied from the backend to local disk.
type LocalFile struct {
	// Name is the file name as listed by the backend.
	Name string

	// Path is where the file was written locally.
	Path string

	Size int64

	// Title, Uploader and Duration come from the analyzed video or playlist
	// entry when known; Title falls back to the file name without extension.
	Title    string
	Uploader string
	Duration float64
}

// IsMP3 reports whether the file can carry ID3 tags.
func (f *LocalFile) IsMP3() bool {
	return strings.EqualFold(filepath.Ext(f.Name), ".mp3")
}

// DisplayTitle returns Title or, when empty, the file name without extension.
func (f *LocalFile) DisplayTitle() string {
	if f.Title != "" {
		return f.Title
	}
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// LocalSet groups files fetched together, usually one playlist.
type LocalSet struct {
	// Title names the set; it becomes the ID3 album and the playlist name.
	Title string

	// Dir is the directory the files were written to.
	Dir string

	Files []*LocalFile
}

// PlaylistPath returns where the playlist file for this set is written.
func (s *LocalSet) PlaylistPath(pf PlaylistFormat) string {
	name := sanitizeFileName(s.Title)
	if name == "" {
		name = "playlist"
	}
	return filepath.Join(s.Dir, name+pf.Extension())
}

var (
	invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots     = regexp.MustCompile(`\.+$`)
	repeatedSpace    = regexp.MustCompile(`\s+`)
)

func sanitizeFileName(name string) string {
	name = invalidFileChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
