package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/voxworks/voxsay/internal/logger"
)

// Player plays WAV audio through the system audio device via oto.
//
// oto binds its context to one sample format, so the player is created
// lazily from the first WAV it sees and subsequent files must match.
type Player struct {
	log *logger.Logger

	mu     sync.Mutex
	ctx    *oto.Context
	format Format
	active *oto.Player // currently playing, nil when idle
}

// NewPlayer creates an audio player. The underlying device is opened on
// the first call to Play.
func NewPlayer(log *logger.Logger) *Player {
	return &Player{log: log.Named("player")}
}

// Play decodes and plays a WAV synchronously. Blocks until playback
// finishes or Stop is called.
func (p *Player) Play(wav []byte) error {
	pcm, f, err := ParseWAV(wav)
	if err != nil {
		return err
	}

	if err := p.ensureContext(f); err != nil {
		return err
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))

	p.mu.Lock()
	p.active = player
	p.mu.Unlock()

	player.Play()
	p.log.Debug("playing %d bytes of PCM (%d Hz, %d ch)", len(pcm), f.SampleRate, f.Channels)

	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}

	p.mu.Lock()
	p.active = nil
	p.mu.Unlock()

	return player.Close()
}

// Stop interrupts the currently playing audio, if any. Safe to call
// concurrently and when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("playback interrupted")
	}
}

// ensureContext opens the audio device for the given format, or verifies
// that an already-open device matches it.
func (p *Player) ensureContext(f Format) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		if p.format != f {
			return fmt.Errorf("audio device is open at %d Hz/%d ch, got wav at %d Hz/%d ch",
				p.format.SampleRate, p.format.Channels, f.SampleRate, f.Channels)
		}
		return nil
	}

	var otoFormat oto.Format
	switch f.BitsPerSample {
	case 16:
		otoFormat = oto.FormatSignedInt16LE
	case 8:
		otoFormat = oto.FormatUnsignedInt8
	default:
		return fmt.Errorf("unsupported bit depth %d", f.BitsPerSample)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       otoFormat,
	})
	if err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	p.ctx = ctx
	p.format = f
	p.log.Debug("audio device opened (rate=%d, channels=%d, bits=%d)", f.SampleRate, f.Channels, f.BitsPerSample)
	return nil
}
