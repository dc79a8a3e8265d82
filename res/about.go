// Package res holds static text resources of the player shell.
package res

import "fmt"

const aboutTemplate = `**Nuvé** %s

A media player for audio, video and YouTube tracks built with Go and Fyne.

**Features:**
- Native audio playback (MP3, WAV, FLAC)
- Video and YouTube playback through the screen window
- Favorites, playlists and a free-text filter
- Curated YouTube categories and search
- Profile sync across sessions

**Shortcuts:** Space play/pause, ←/→ seek 5s, ↑/↓ volume, N next, P previous.
`

// AboutContent returns the Markdown content of the About dialog.
func AboutContent(version string) string {
	return fmt.Sprintf(aboutTemplate, version)
}
