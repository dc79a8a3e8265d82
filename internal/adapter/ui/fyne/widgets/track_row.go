package widgets

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"github.com/nuveplayer/nuve/internal/domain"
)

// Ensure TrackRow implements the tap interfaces
var (
	_ fyne.DoubleTappable    = (*TrackRow)(nil)
	_ fyne.SecondaryTappable = (*TrackRow)(nil)
)

// TrackRow is a list row for a single track. Double-tap plays it, a
// secondary tap opens its context menu. The current track is shown bold.
type TrackRow struct {
	widget.Label

	trackID         string
	doubleTapped    func(trackID string)
	secondaryTapped func(trackID string, pos fyne.Position)
}

// NewTrackRow creates a row that reports double-taps with the track id.
func NewTrackRow(doubleTapped func(trackID string)) *TrackRow {
	row := &TrackRow{doubleTapped: doubleTapped}
	row.Truncation = fyne.TextTruncateEllipsis
	row.ExtendBaseWidget(row)
	return row
}

// Bind shows track in the row.
func (r *TrackRow) Bind(track domain.Track, current, favorite bool) {
	r.trackID = track.ID
	text := track.String()
	if favorite {
		text = "♥ " + text
	}
	if track.IsYouTube() {
		text += "  [YouTube]"
	}
	r.TextStyle = fyne.TextStyle{Bold: current}
	r.SetText(text)
}

// TrackID returns the id of the bound track.
func (r *TrackRow) TrackID() string {
	return r.trackID
}

// SetSecondaryTapped sets the callback for right-click (secondary tap) events.
func (r *TrackRow) SetSecondaryTapped(callback func(trackID string, pos fyne.Position)) {
	r.secondaryTapped = callback
}

// DoubleTapped implements fyne.DoubleTappable.
func (r *TrackRow) DoubleTapped(_ *fyne.PointEvent) {
	if r.doubleTapped != nil && r.trackID != "" {
		r.doubleTapped(r.trackID)
	}
}

// TappedSecondary implements fyne.SecondaryTappable.
func (r *TrackRow) TappedSecondary(pe *fyne.PointEvent) {
	if r.secondaryTapped != nil && r.trackID != "" {
		r.secondaryTapped(r.trackID, pe.AbsolutePosition)
	}
}
