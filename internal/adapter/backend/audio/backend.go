// Package audio implements the native audio backend on beep.
//
// A loaded source stays attached to the output until it is cleared. After
// the end of media the chain streams silence, so a seek followed by a play
// restarts it without reattaching.
package audio

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"

	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/ports"
)

const (
	// DefaultSampleRate is the output sample rate.
	DefaultSampleRate = beep.SampleRate(44100)

	defaultClockInterval = 250 * time.Millisecond
	resampleQuality      = 4
)

// output is where decoded audio is mixed to. The speaker is the only
// production implementation.
type output interface {
	Play(s ...beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

// Backend plays audio sources through the system speaker.
//
// Thread-safety: This implementation is thread-safe.
type Backend struct {
	logger        *slog.Logger
	out           output
	client        *http.Client
	sampleRate    beep.SampleRate
	clockInterval time.Duration

	mu     sync.Mutex
	src    *source
	volume float64
	muted  bool
	closed bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithHTTPClient sets the client used for remote sources.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Backend) {
		b.client = client
	}
}

// WithClockInterval sets how often the clock is pushed while playing.
func WithClockInterval(interval time.Duration) Option {
	return func(b *Backend) {
		b.clockInterval = interval
	}
}

func withOutput(out output) Option {
	return func(b *Backend) {
		b.out = out
	}
}

// New creates the native audio backend. It fails when the build has no
// audio support or the speaker cannot be opened.
func New(logger *slog.Logger, opts ...Option) (*Backend, error) {
	b := &Backend{
		logger:        logger.With(slog.String("backend", domain.BackendNativeAudio.String())),
		client:        http.DefaultClient,
		sampleRate:    DefaultSampleRate,
		clockInterval: defaultClockInterval,
		volume:        1,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.out == nil {
		out, err := newSpeakerOutput(b.sampleRate)
		if err != nil {
			return nil, domain.NewBackendError("init", domain.BackendNativeAudio, "", "failed to open speaker", err)
		}
		b.out = out
	}
	return b, nil
}

// source is a decoded, attached media source.
type source struct {
	url      string
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	vol      *effects.Volume
	tail     *tail

	listener ports.BackendListener
	ended    chan struct{}
	stop     chan struct{}
	done     chan struct{}
}

// Kind returns domain.BackendNativeAudio.
func (b *Backend) Kind() domain.BackendKind {
	return domain.BackendNativeAudio
}

// Load decodes the source at url and attaches it paused.
func (b *Backend) Load(ctx context.Context, track domain.Track, url string, listener ports.BackendListener) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return domain.ErrClosed
	}
	if url == "" {
		return domain.NewBackendError("load", domain.BackendNativeAudio, url, "empty source", domain.ErrNoSource)
	}

	if err := b.Clear(); err != nil {
		return err
	}

	streamer, format, err := b.decode(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.NewBackendError("load", domain.BackendNativeAudio, url, "failed to decode source", err)
	}

	var s beep.Streamer = streamer
	if format.SampleRate != b.sampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, b.sampleRate, s)
	}

	src := &source{
		url:      url,
		streamer: streamer,
		format:   format,
		listener: listener,
		ended:    make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	src.tail = &tail{streamer: s, ended: src.ended}
	src.ctrl = &beep.Ctrl{Streamer: src.tail, Paused: true}
	src.vol = &effects.Volume{Streamer: src.ctrl, Base: 2}

	b.mu.Lock()
	if b.closed || ctx.Err() != nil {
		b.mu.Unlock()
		_ = streamer.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.ErrClosed
	}
	applyGain(src.vol, b.volume, b.muted)
	b.src = src
	b.mu.Unlock()

	b.out.Play(src.vol)
	go b.clockLoop(src)

	duration := format.SampleRate.D(streamer.Len())
	b.logger.Debug("source loaded",
		slog.String("track_id", track.ID),
		slog.Duration("duration", duration))
	listener(domain.BackendEvent{Kind: domain.BackendEventReady, Duration: duration})
	return nil
}

// clockLoop pushes the clock while playing and reports the end of media.
func (b *Backend) clockLoop(src *source) {
	defer close(src.done)

	ticker := time.NewTicker(b.clockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-src.stop:
			return
		case <-src.ended:
			if err := b.streamErr(src); err != nil {
				src.listener(domain.BackendEvent{Kind: domain.BackendEventFailed, Err: err})
				continue
			}
			src.listener(domain.BackendEvent{Kind: domain.BackendEventEnded})
		case <-ticker.C:
			pos, dur, playing := b.clockOf(src)
			if playing {
				src.listener(domain.BackendEvent{Kind: domain.BackendEventClock, Position: pos, Duration: dur})
			}
		}
	}
}

func (b *Backend) streamErr(src *source) error {
	b.out.Lock()
	defer b.out.Unlock()
	return src.streamer.Err()
}

func (b *Backend) clockOf(src *source) (time.Duration, time.Duration, bool) {
	b.out.Lock()
	defer b.out.Unlock()
	pos := src.format.SampleRate.D(src.streamer.Position())
	dur := src.format.SampleRate.D(src.streamer.Len())
	return pos, dur, !src.ctrl.Paused && !src.tail.done
}

// Clear detaches and closes the current source.
func (b *Backend) Clear() error {
	b.mu.Lock()
	src := b.src
	b.src = nil
	b.mu.Unlock()
	if src == nil {
		return nil
	}

	close(src.stop)
	<-src.done

	b.out.Lock()
	src.ctrl.Paused = true
	b.out.Unlock()
	b.out.Clear()

	if err := src.streamer.Close(); err != nil {
		return domain.NewBackendError("clear", domain.BackendNativeAudio, src.url, "failed to close source", err)
	}
	return nil
}

// Close clears the backend. It must not be used afterwards.
func (b *Backend) Close() error {
	err := b.Clear()
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return err
}

func (b *Backend) current() (*source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.src == nil {
		return nil, domain.ErrNoSource
	}
	return b.src, nil
}

// Play resumes the loaded source.
func (b *Backend) Play() error {
	src, err := b.current()
	if err != nil {
		return err
	}
	b.out.Lock()
	src.ctrl.Paused = false
	b.out.Unlock()
	return nil
}

// Pause pauses the loaded source. Pausing without a source is a no-op.
func (b *Backend) Pause() error {
	src, err := b.current()
	if err != nil {
		return nil
	}
	b.out.Lock()
	src.ctrl.Paused = true
	b.out.Unlock()
	return nil
}

// Seek moves the position, clamped to the source length. Seeking rearms
// the end of media report.
func (b *Backend) Seek(position time.Duration) error {
	src, err := b.current()
	if err != nil {
		return err
	}

	b.out.Lock()
	defer b.out.Unlock()

	n := src.format.SampleRate.N(position)
	n = max(0, min(n, src.streamer.Len()))
	if err := src.streamer.Seek(n); err != nil {
		return domain.NewBackendError("seek", domain.BackendNativeAudio, src.url, "seek failed", err)
	}
	src.tail.done = false
	return nil
}

// SetVolume sets the linear output volume (0.0 to 1.0).
func (b *Backend) SetVolume(volume float64) error {
	volume = max(0, min(volume, 1))

	b.mu.Lock()
	b.volume = volume
	src, muted := b.src, b.muted
	b.mu.Unlock()

	if src != nil {
		b.out.Lock()
		applyGain(src.vol, volume, muted)
		b.out.Unlock()
	}
	return nil
}

// SetMuted mutes or unmutes the output.
func (b *Backend) SetMuted(muted bool) error {
	b.mu.Lock()
	b.muted = muted
	src, volume := b.src, b.volume
	b.mu.Unlock()

	if src != nil {
		b.out.Lock()
		applyGain(src.vol, volume, muted)
		b.out.Unlock()
	}
	return nil
}

// applyGain maps a linear volume onto a base-2 gain.
func applyGain(v *effects.Volume, volume float64, muted bool) {
	v.Silent = muted || volume <= 0
	if volume > 0 {
		v.Volume = math.Log2(volume)
	}
}

// PushesClock returns true: the clock loop pushes the position.
func (b *Backend) PushesClock() bool {
	return true
}

// Clock returns the position and duration of the loaded source.
func (b *Backend) Clock(ctx context.Context) (time.Duration, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	src, err := b.current()
	if err != nil {
		return 0, 0, err
	}
	pos, dur, _ := b.clockOf(src)
	return pos, dur, nil
}

// tail streams silence once its source is drained and signals the end
// once per pass.
type tail struct {
	streamer beep.Streamer
	ended    chan<- struct{}
	done     bool
}

func (t *tail) Stream(samples [][2]float64) (int, bool) {
	n := 0
	if !t.done {
		var ok bool
		n, ok = t.streamer.Stream(samples)
		if !ok || n < len(samples) {
			t.done = true
			select {
			case t.ended <- struct{}{}:
			default:
			}
		}
	}
	clear(samples[n:])
	return len(samples), true
}

func (t *tail) Err() error {
	return t.streamer.Err()
}

var _ ports.MediaBackend = (*Backend)(nil)
