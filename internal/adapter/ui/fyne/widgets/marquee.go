// Package widgets provides custom Fyne widgets for the Nuvé player shell.
package widgets

import (
	"sync"
)

const marqueeGap = "    "

// Marquee scrolls text that is wider than a fixed number of characters.
// Each call to Frame advances the text by one rune.
type Marquee struct {
	mu     sync.Mutex
	text   []rune
	width  int
	offset int
}

// NewMarquee creates a marquee showing width runes at a time.
func NewMarquee(text string, width int) *Marquee {
	m := &Marquee{width: width}
	m.SetText(text)
	return m
}

// SetText replaces the text and restarts scrolling.
func (m *Marquee) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = []rune(text)
	m.offset = 0
}

// Scrolls reports whether the text is too wide to show at once.
func (m *Marquee) Scrolls() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.text) > m.width
}

// Frame returns the visible window and advances the marquee.
// Text that fits is returned unchanged.
func (m *Marquee) Frame() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.text) <= m.width {
		return string(m.text)
	}

	loop := append(append([]rune{}, m.text...), []rune(marqueeGap)...)
	out := make([]rune, m.width)
	for i := range out {
		out[i] = loop[(m.offset+i)%len(loop)]
	}
	m.offset = (m.offset + 1) % len(loop)
	return string(out)
}
