// Package display styles voxsay's terminal output. Logs go to the
// logger; this is only the human-facing summary lines.
package display

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Saved — soft mint, the line users grep for.
	savedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	// Detail — dimmed zinc for metadata.
	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	// Speaker — soft sky blue.
	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	// Error — soft coral.
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))
)

// Saved renders the output-path line printed after every synthesis.
func Saved(path string) string {
	return savedStyle.Render("saved: " + path)
}

// Summary renders the metadata line under the saved line.
func Summary(speaker string, sampleRate int, d time.Duration, cached bool) string {
	voiceLabel := "default voice"
	if speaker != "" {
		voiceLabel = speakerStyle.Render(speaker)
	}
	line := fmt.Sprintf("voice=%s", voiceLabel)
	if sampleRate > 0 {
		line += fmt.Sprintf("  rate=%dHz  length=%s", sampleRate, d.Round(10*time.Millisecond))
	}
	if cached {
		line += "  (cached)"
	}
	return detailStyle.Render(line)
}

// Errorf renders an error line.
func Errorf(format string, args ...any) string {
	return errorStyle.Render("error: " + fmt.Sprintf(format, args...))
}

// ListenBanner renders the startup line for listen mode.
func ListenBanner(channel string, workers int) string {
	return bannerStyle.Render(fmt.Sprintf("voxsay listening on %s (%d workers) — ctrl-c to stop", channel, workers))
}
