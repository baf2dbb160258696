package audio

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/handiism/tubesync/internal/model"
)

// PlaylistCreator generates playlist files for a set of fetched files.
//
// Entries are relative (just the file name); the playlist is written next
// to the files it lists.
//
// Example:
//
//	creator := NewPlaylistCreator(model.PlaylistFormatM3U, true)
//	content := creator.CreatePlaylist(set)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:213,Channel - Video Title
//	// Video Title [dQw4w9WgXcQ].mp3
type PlaylistCreator struct {
	format   model.PlaylistFormat
	extended bool // For M3U: include EXTINF lines with duration/title
}

// NewPlaylistCreator creates a new PlaylistCreator. extended only affects
// M3U output.
func NewPlaylistCreator(format model.PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// Format returns the playlist format the creator writes.
func (p *PlaylistCreator) Format() model.PlaylistFormat {
	return p.format
}

// CreatePlaylist generates playlist content for set.
func (p *PlaylistCreator) CreatePlaylist(set *model.LocalSet) string {
	switch p.format {
	case model.PlaylistFormatPLS:
		return p.createPLS(set)
	case model.PlaylistFormatWPL:
		return p.createWPL(set)
	case model.PlaylistFormatZPL:
		return p.createZPL(set)
	default:
		return p.createM3U(set)
	}
}

// createM3U generates an M3U playlist, with #EXTINF lines when extended.
func (p *PlaylistCreator) createM3U(set *model.LocalSet) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
		if set.Title != "" {
			fmt.Fprintf(&sb, "#PLAYLIST:%s\n", set.Title)
		}
	}

	for _, f := range set.Files {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:%d,%s\n", extinfDuration(f), entryLabel(f))
		}
		sb.WriteString(filepath.Base(f.Path) + "\n")
	}

	return sb.String()
}

// createPLS generates an INI-style PLS playlist.
func (p *PlaylistCreator) createPLS(set *model.LocalSet) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")

	for i, f := range set.Files {
		idx := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", idx, filepath.Base(f.Path))
		fmt.Fprintf(&sb, "Title%d=%s\n", idx, f.DisplayTitle())
		fmt.Fprintf(&sb, "Length%d=%d\n", idx, extinfDuration(f))
	}

	fmt.Fprintf(&sb, "NumberOfEntries=%d\n", len(set.Files))
	sb.WriteString("Version=2\n")

	return sb.String()
}

// createWPL generates a Windows Media Player playlist.
func (p *PlaylistCreator) createWPL(set *model.LocalSet) string {
	var sb strings.Builder

	sb.WriteString("<?wpl version=\"1.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(set.Title))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, f := range set.Files {
		fmt.Fprintf(&sb, "      <media src=\"%s\"/>\n", escapeXML(filepath.Base(f.Path)))
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// createZPL generates a Zune/Groove playlist with per-entry metadata.
func (p *PlaylistCreator) createZPL(set *model.LocalSet) string {
	var sb strings.Builder

	sb.WriteString("<?zpl version=\"2.0\"?>\n")
	sb.WriteString("<smil>\n")
	sb.WriteString("  <head>\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", escapeXML(set.Title))
	sb.WriteString("    <meta name=\"Generator\" content=\"TubeSync\"/>\n")
	fmt.Fprintf(&sb, "    <meta name=\"ItemCount\" content=\"%d\"/>\n", len(set.Files))
	sb.WriteString("  </head>\n")
	sb.WriteString("  <body>\n")
	sb.WriteString("    <seq>\n")

	for _, f := range set.Files {
		// Whole seconds, like the M3U and PLS lengths
		duration := time.Duration(int(f.Duration)) * time.Second
		fmt.Fprintf(&sb, "      <media src=\"%s\" albumTitle=\"%s\" trackTitle=\"%s\" trackArtist=\"%s\" duration=\"%d\"/>\n",
			escapeXML(filepath.Base(f.Path)),
			escapeXML(set.Title),
			escapeXML(f.DisplayTitle()),
			escapeXML(f.Uploader),
			duration.Milliseconds())
	}

	sb.WriteString("    </seq>\n")
	sb.WriteString("  </body>\n")
	sb.WriteString("</smil>\n")

	return sb.String()
}

// extinfDuration is the whole-second duration, or -1 when unknown as the
// extended M3U convention requires.
func extinfDuration(f *model.LocalFile) int {
	if f.Duration <= 0 {
		return -1
	}
	return int(f.Duration)
}

func entryLabel(f *model.LocalFile) string {
	if f.Uploader == "" {
		return f.DisplayTitle()
	}
	return f.Uploader + " - " + f.DisplayTitle()
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"\"", "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
