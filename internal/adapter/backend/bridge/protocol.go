package bridge

import (
	"time"

	"github.com/nuveplayer/nuve/internal/domain"
)

// MessageType identifies a bridge message.
type MessageType string

// Commands sent to a screen.
const (
	MsgLoad   MessageType = "load"
	MsgClear  MessageType = "clear"
	MsgPlay   MessageType = "play"
	MsgPause  MessageType = "pause"
	MsgSeek   MessageType = "seek"
	MsgVolume MessageType = "volume"
)

// Messages sent by a screen.
const (
	// MsgHello is sent once the screen can load media; for the widget this
	// is after the player script loaded.
	MsgHello MessageType = "hello"
	// MsgAck answers a command that carried an ID.
	MsgAck     MessageType = "ack"
	MsgReady   MessageType = "ready"
	MsgPlaying MessageType = "playing"
	MsgPaused  MessageType = "paused"
	MsgEnded   MessageType = "ended"
	MsgState   MessageType = "state"
	MsgError   MessageType = "error"
)

// MsgClock is a clock request when sent to a screen and a clock report
// when sent by one.
const MsgClock MessageType = "clock"

// Message is the single JSON frame exchanged with screens. Times are in
// seconds.
type Message struct {
	Type     MessageType `json:"type"`
	ID       uint64      `json:"id,omitempty"`
	TrackID  string      `json:"trackId,omitempty"`
	Source   string      `json:"source,omitempty"`
	VideoID  string      `json:"videoId,omitempty"`
	Poster   string      `json:"poster,omitempty"`
	Position float64     `json:"position,omitempty"`
	Duration float64     `json:"duration,omitempty"`
	Volume   float64     `json:"volume,omitempty"`
	Muted    bool        `json:"muted,omitempty"`
	State    *int        `json:"state,omitempty"`
	Error    string      `json:"error,omitempty"`
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}

func duration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// kindPaths maps the backends served by the bridge to their screen path.
var kindPaths = map[domain.BackendKind]string{
	domain.BackendNativeVideo:    "video",
	domain.BackendEmbeddedWidget: "widget",
}

func kindOf(name string) (domain.BackendKind, bool) {
	for kind, path := range kindPaths {
		if path == name {
			return kind, true
		}
	}
	return 0, false
}
