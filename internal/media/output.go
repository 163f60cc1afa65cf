package media

import (
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Output is the audio sink. Play and Clear take the sink lock themselves,
// so they must never be called between Lock and Unlock.
type Output interface {
	Init(sampleRate beep.SampleRate) error
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

// speakerOutput plays through the system audio device
type speakerOutput struct{}

func (speakerOutput) Init(sampleRate beep.SampleRate) error {
	return speaker.Init(sampleRate, sampleRate.N(time.Second/10))
}

func (speakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerOutput) Clear()               { speaker.Clear() }
func (speakerOutput) Lock()                { speaker.Lock() }
func (speakerOutput) Unlock()              { speaker.Unlock() }
