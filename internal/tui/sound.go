package tui

import (
	"log"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Sound plays short landing tones. A Sound whose speaker failed to
// initialise is silent.
type Sound struct {
	enabled bool
}

// NewSound initialises the speaker. Failure is logged, not fatal.
func NewSound() *Sound {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		log.Printf("[TUI] Audio initialization failed: %v", err)
		return &Sound{}
	}
	return &Sound{enabled: true}
}

// Silent returns a Sound that never plays.
func Silent() *Sound {
	return &Sound{}
}

// toneFor maps a score onto a pitch; better landings ring higher.
func toneFor(score int) float64 {
	return 220 + float64(score)*0.66
}

// PlayLanding plays a tone pitched by score.
func (s *Sound) PlayLanding(score int) {
	if s == nil || !s.enabled {
		return
	}
	sine, err := generators.SineTone(sampleRate, toneFor(score))
	if err != nil {
		return
	}
	duration := sampleRate.N(120 * time.Millisecond)
	speaker.Play(beep.Take(duration, sine))
}

func (s *Sound) Close() {
	if s != nil && s.enabled {
		speaker.Close()
		s.enabled = false
	}
}
