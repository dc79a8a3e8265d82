//go:build (linux && cgo) || windows || darwin

package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

var (
	speakerOnce sync.Once
	speakerErr  error
)

type speakerOutput struct{}

// newSpeakerOutput opens the speaker once per process.
func newSpeakerOutput(rate beep.SampleRate) (output, error) {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(rate, rate.N(time.Second/10))
	})
	if speakerErr != nil {
		return nil, speakerErr
	}
	return speakerOutput{}, nil
}

func (speakerOutput) Play(s ...beep.Streamer) { speaker.Play(s...) }
func (speakerOutput) Clear()                  { speaker.Clear() }
func (speakerOutput) Lock()                   { speaker.Lock() }
func (speakerOutput) Unlock()                 { speaker.Unlock() }
