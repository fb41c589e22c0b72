// Package synth invokes the pretrained text-to-speech model. The model
// itself is an opaque collaborator; this package only shapes requests,
// runs the inference subprocess, and caches the audio it returns.
package synth

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	ErrEmptyText = errors.New("nothing to synthesize")
	ErrNoAudio   = errors.New("model produced no audio")
)

// Request carries one synthesis call. PromptWavPath and PromptText are
// the optional voice-cloning reference pair; the model uses them only
// when both are set.
type Request struct {
	Text          string
	PromptWavPath string
	PromptText    string
}

// Result is the synthesized audio.
type Result struct {
	WAV        []byte
	SampleRate int
}

// Synthesizer converts text to speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*Result, error)
}
