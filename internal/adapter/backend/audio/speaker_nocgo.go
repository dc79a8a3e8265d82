//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"errors"

	"github.com/gopxl/beep/v2"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires CGO for native sound libraries.
const AudioAvailable = false

func newSpeakerOutput(beep.SampleRate) (output, error) {
	return nil, errors.New("audio output requires cgo")
}
