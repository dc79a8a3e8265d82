package service

import (
	"sync"

	"github.com/nuveplayer/nuve/internal/adapter/eventbus"
	"github.com/nuveplayer/nuve/internal/domain"
	"github.com/nuveplayer/nuve/internal/logger"
)

// Helper to create an audio track
func audioTrack(id, title, artist string) domain.Track {
	return domain.Track{
		ID:        id,
		Title:     title,
		Artist:    artist,
		MediaType: domain.MediaAudio,
		Sources: map[domain.StreamQuality]string{
			domain.QualityLow:  "https://cdn.example.com/" + id + "-low.mp3",
			domain.QualityHigh: "https://cdn.example.com/" + id + "-high.mp3",
		},
	}
}

// Helper to create a video track
func videoTrack(id, title string) domain.Track {
	return domain.Track{
		ID:        id,
		Title:     title,
		Artist:    "Video Artist",
		MediaType: domain.MediaVideo,
		Sources: map[domain.StreamQuality]string{
			domain.QualityHigh: "https://cdn.example.com/" + id + ".mp4",
		},
	}
}

// Helper to create a youtube track
func youtubeTrack(id, videoID string) domain.Track {
	return domain.Track{
		ID:             id,
		Title:          "Clip " + id,
		Artist:         "Channel",
		MediaType:      domain.MediaVideo,
		Kind:           domain.SourceYouTube,
		YouTubeVideoID: videoID,
		Sources:        map[domain.StreamQuality]string{},
	}
}

// eventRecorder collects events of the given types.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func recordEvents(bus *eventbus.SyncEventBus, types ...domain.EventType) *eventRecorder {
	r := &eventRecorder{}
	for _, typ := range types {
		bus.Subscribe(typ, func(e domain.Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
		})
	}
	return r
}

func (r *eventRecorder) all() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func (r *eventRecorder) count(typ domain.EventType) int {
	n := 0
	for _, e := range r.all() {
		if e.Type() == typ {
			n++
		}
	}
	return n
}

func newTestStore() (*StateStore, *eventbus.SyncEventBus) {
	bus := eventbus.NewSyncEventBus()
	return NewStateStore(logger.NewTestLogger(), bus), bus
}
