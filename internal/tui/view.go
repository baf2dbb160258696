package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/tubesync/internal/model"
	"github.com/handiism/tubesync/internal/monitor"
)

// Rows shown per list before it scrolls.
const listRows = 10

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("▶ TubeSync"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download YouTube videos and playlists"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateAnalyzing:
		b.WriteString(m.viewBusy("Fetching video info..."))
	case StateFormats:
		b.WriteString(m.viewFormats())
	case StatePath:
		b.WriteString(m.viewPath())
	case StateDownloads:
		b.WriteString(m.viewDownloads())
	case StateFetching:
		b.WriteString(m.viewBusy("Copying files from the server..."))
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter YouTube URL:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[x]"
	}
	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Verbose output (ctrl+o)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Server: " + m.settings.ServerURL))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download path: " + displayPath(m.manager.DownloadPath())))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewBusy(label string) string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render(label))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewFormats() string {
	var b strings.Builder

	b.WriteString(m.renderInfo())
	b.WriteString("\n")

	quality := m.quality
	if quality == "" {
		quality = "all"
	}
	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Type: %s | Quality: %s | Path: %s",
		m.manager.DownloadType(), quality, displayPath(m.manager.DownloadPath()),
	)))
	b.WriteString("\n\n")

	formats := m.manager.Formats(m.quality)
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Formats (%d):", len(formats))))
	b.WriteString("\n")
	if len(formats) == 0 {
		b.WriteString(dimStyle.Render("  No formats available for download"))
		b.WriteString("\n")
	}
	start, end := visibleRange(m.formatCursor, len(formats), listRows)
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(m.focus == FocusFormats && i == m.formatCursor, formatLine(formats[i])))
	}

	if m.info != nil && m.info.IsPlaylist && len(m.info.PlaylistEntries) > 0 {
		b.WriteString("\n")
		b.WriteString(subtitleStyle.Render(fmt.Sprintf("Videos (%d selected):", len(m.selectedEntryURLs()))))
		b.WriteString("\n")
		entries := m.info.PlaylistEntries
		start, end := visibleRange(m.entryCursor, len(entries), listRows)
		for i := start; i < end; i++ {
			check := "[ ]"
			if m.entries[i] {
				check = "[x]"
			}
			line := fmt.Sprintf("%s %s (%s)", check, entries[i].Title, model.FormatDuration(entries[i].Duration))
			b.WriteString(m.renderRow(m.focus == FocusEntries && i == m.entryCursor, line))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderIndicator())
	b.WriteString(m.renderNotice())
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewPath() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Download path on the server:"))
	b.WriteString("\n\n")
	b.WriteString(m.pathInput.View())
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Configured: " + displayPath(m.settings.DownloadPath)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewDownloads() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render(fmt.Sprintf("Downloads (%d):", len(m.files))))
	b.WriteString("\n")
	if len(m.files) == 0 {
		b.WriteString(dimStyle.Render("  No downloads yet"))
		b.WriteString("\n")
	}
	start, end := visibleRange(m.fileCursor, len(m.files), listRows)
	for i := start; i < end; i++ {
		f := m.files[i]
		check := "[ ]"
		if m.picked[f.Name] {
			check = "[x]"
		}
		line := fmt.Sprintf("%s %-40s %10s  %s",
			check, f.Name, model.FormatFileSize(f.Size), f.ModTime().Format("2006-01-02 15:04"))
		b.WriteString(m.renderRow(i == m.fileCursor, line))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Saving to: " + m.settings.FetchPath))
	b.WriteString("\n\n")
	b.WriteString(m.renderIndicator())
	b.WriteString(m.renderNotice())
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderInfo() string {
	info := m.info
	if info == nil {
		return ""
	}

	var details string
	if info.IsPlaylist {
		details = fmt.Sprintf("Playlist | %d videos | %s", info.PlaylistCount, info.Uploader)
	} else {
		details = fmt.Sprintf("%s | %s | %s views",
			info.Uploader, model.FormatDuration(info.Duration), model.FormatCount(info.ViewCount))
	}
	return boxStyle.Render(info.Title + "\n" + dimStyle.Render(details))
}

// renderIndicator shows the tracked job's progress bar and message. The bar
// is hidden once tracking stops; the last message stays visible.
func (m Model) renderIndicator() string {
	snap := m.indicator
	if snap.JobID == "" {
		return ""
	}

	var style lipgloss.Style
	switch snap.Tone {
	case monitor.ToneSuccess:
		style = successStyle
	case monitor.ToneFailure:
		style = errorStyle
	default:
		style = infoStyle
	}

	var b strings.Builder
	if snap.Active {
		b.WriteString(m.progress.ViewAs(snap.Percent / 100))
		b.WriteString("\n")
	}
	b.WriteString(style.Render(snap.Message))
	b.WriteString("\n\n")
	return b.String()
}

func (m Model) renderNotice() string {
	if m.notice == "" {
		return ""
	}
	return warningStyle.Render("! "+m.notice) + "\n\n"
}

func (m Model) renderRow(selected bool, line string) string {
	if selected {
		return cursorStyle.Render("› "+line) + "\n"
	}
	return "  " + line + "\n"
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case model.LevelError:
			style = errorStyle
			prefix = "✗"
		case model.LevelWarning:
			style = warningStyle
			prefix = "!"
		case model.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case model.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: analyze • ctrl+o: verbose • esc: quit"
	case StateAnalyzing, StateFetching:
		return "esc: cancel"
	case StateFormats:
		if m.info != nil && m.info.IsPlaylist {
			return "enter: download playlist • tab: formats/videos • space: select • s: download selected • f: quality • t: type • o: path • c: cancel • l: downloads • esc: back"
		}
		return "enter: download • f: quality • t: type • o: path • c: cancel • l: downloads • esc: back • q: quit"
	case StatePath:
		return "enter: save • esc: back"
	case StateDownloads:
		return "space: select • a: all • f: fetch • r: refresh • esc: back • q: quit"
	case StateError:
		return "r: new download • q: quit"
	}
	return ""
}

func formatLine(f model.Format) string {
	label := f.Resolution
	if f.IsAudioOnly() {
		label = "audio only"
	}
	return fmt.Sprintf("%-8s %-5s %-12s %10s  %s",
		f.FormatID, f.Ext, label, model.FormatFileSize(f.Filesize), f.Description)
}

func displayPath(path string) string {
	if path == "" {
		return "(server default)"
	}
	return path
}

// visibleRange returns the window of at most rows items that keeps cursor
// in view.
func visibleRange(cursor, n, rows int) (int, int) {
	if n <= rows {
		return 0, n
	}
	start := min(max(cursor-rows/2, 0), n-rows)
	return start, start + rows
}
