package model

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=`),
	regexp.MustCompile(`youtu\.be/`),
	regexp.MustCompile(`youtube\.com/playlist\?list=`),
	regexp.MustCompile(`youtube\.com/shorts/`),
}

// IsValidYouTubeURL reports whether url looks like a YouTube video,
// short, or playlist link. It does no network access.
func IsValidYouTubeURL(url string) bool {
	for _, p := range youtubePatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "Unknown"
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatFileSize renders a byte count with a binary unit and at most
// two decimals, e.g. "1.5 MB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "Unknown"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := math.Round(float64(bytes)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

// FormatCount renders n with comma thousands separators.
func FormatCount(n int64) string {
	if n <= 0 {
		return "Unknown"
	}
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
