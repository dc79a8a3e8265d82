package widgets

import (
	"image/color"
	"math"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const (
	waveCycle   = 1200 * time.Millisecond
	waveIdle    = 0.15
	waveMinBarW = 4
	waveGap     = 3
)

// WaveStrip is a decorative row of bars that ripple while active.
// It does not analyse audio; the bars follow a travelling sine wave.
type WaveStrip struct {
	widget.BaseWidget

	numBars   int
	mu        sync.Mutex
	levels    []float32
	active    bool
	animation *fyne.Animation
}

// NewWaveStrip creates a strip of numBars bars, initially idle.
func NewWaveStrip(numBars int) *WaveStrip {
	w := &WaveStrip{
		numBars: numBars,
		levels:  WaveLevels(numBars, 0, false),
	}
	w.animation = &fyne.Animation{
		Duration:    waveCycle,
		RepeatCount: fyne.AnimationRepeatForever,
		Curve:       fyne.AnimationLinear,
		Tick:        w.tick,
	}
	w.ExtendBaseWidget(w)
	return w
}

// WaveLevels returns bar heights in 0..1 at phase (0..1) of the cycle.
// Inactive strips rest at a flat idle level.
func WaveLevels(numBars int, phase float32, active bool) []float32 {
	levels := make([]float32, numBars)
	for i := range levels {
		if !active {
			levels[i] = waveIdle
			continue
		}
		angle := 2 * math.Pi * (float64(phase) + float64(i)/float64(numBars))
		levels[i] = float32(waveIdle + (1-waveIdle)*(0.5+0.5*math.Sin(angle)))
	}
	return levels
}

// SetActive starts or stops the ripple. Must be called on the UI thread.
func (w *WaveStrip) SetActive(active bool) {
	w.mu.Lock()
	if w.active == active {
		w.mu.Unlock()
		return
	}
	w.active = active
	w.levels = WaveLevels(w.numBars, 0, active)
	w.mu.Unlock()

	if active {
		w.animation.Start()
	} else {
		w.animation.Stop()
	}
	w.Refresh()
}

// Active reports whether the strip ripples.
func (w *WaveStrip) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

func (w *WaveStrip) tick(phase float32) {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		return
	}
	w.levels = WaveLevels(w.numBars, phase, true)
	w.mu.Unlock()
	w.Refresh()
}

func (w *WaveStrip) snapshot() ([]float32, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]float32{}, w.levels...), w.active
}

// CreateRenderer implements fyne.Widget.
func (w *WaveStrip) CreateRenderer() fyne.WidgetRenderer {
	r := &waveStripRenderer{strip: w}
	for range w.numBars {
		bar := canvas.NewRectangle(color.Transparent)
		bar.CornerRadius = 2
		r.bars = append(r.bars, bar)
		r.objects = append(r.objects, bar)
	}
	r.Refresh()
	return r
}

type waveStripRenderer struct {
	strip   *WaveStrip
	bars    []*canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *waveStripRenderer) Layout(size fyne.Size) {
	levels, _ := r.strip.snapshot()
	n := float32(len(r.bars))
	if n == 0 {
		return
	}
	barW := (size.Width - waveGap*(n-1)) / n
	for i, bar := range r.bars {
		h := size.Height * levels[i]
		bar.Resize(fyne.NewSize(barW, h))
		bar.Move(fyne.NewPos(float32(i)*(barW+waveGap), size.Height-h))
	}
}

func (r *waveStripRenderer) MinSize() fyne.Size {
	n := float32(len(r.bars))
	return fyne.NewSize(n*waveMinBarW+waveGap*(n-1), 24)
}

func (r *waveStripRenderer) Refresh() {
	_, active := r.strip.snapshot()
	fill := theme.Color(theme.ColorNameDisabled)
	if active {
		fill = theme.Color(theme.ColorNamePrimary)
	}
	r.Layout(r.strip.Size())
	for _, bar := range r.bars {
		bar.FillColor = fill
		canvas.Refresh(bar)
	}
}

func (r *waveStripRenderer) Objects() []fyne.CanvasObject { return r.objects }

func (r *waveStripRenderer) Destroy() {
	r.strip.animation.Stop()
}
