// Package pipeline runs the end-to-end synthesis flow: speaker
// resolution, truncation, model invocation, file output, and the
// optional playback and publish steps.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxworks/voxsay/internal/audio"
	"github.com/voxworks/voxsay/internal/pubsub"
	"github.com/voxworks/voxsay/internal/synth"
	"github.com/voxworks/voxsay/internal/text"
	"github.com/voxworks/voxsay/internal/voice"
)

var (
	ErrEmptyPrompt     = errors.New("empty prompt")
	ErrNothingToSay    = errors.New("prompt truncated to nothing")
	ErrBudgetConflict  = errors.New("maxchars and maxsentences are mutually exclusive")
	ErrHalfClonedVoice = errors.New("prompt wav and prompt text must be supplied together")
)

// Player plays a WAV through the local audio device.
type Player interface {
	Play(wav []byte) error
}

// Publisher announces results over the message transport.
type Publisher interface {
	PublishResult(ctx context.Context, msg pubsub.ResultMessage) error
}

// Logger is the subset of the app logger the pipeline needs.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Job is one synthesis run.
type Job struct {
	ID     uuid.UUID
	Prompt string

	// Speaker names the voice profile directly. When set, the prompt is
	// spoken verbatim — no "speaker:" prefix parsing. Used by listen
	// mode, where the speaker arrives as its own message field.
	Speaker string

	// Truncation budgets. At most one may be set.
	MaxChars     int
	MaxSentences int

	// Profile overrides speaker-prefix resolution when set (the
	// -prompt-wav/-prompt-text pair).
	Profile *voice.Profile

	Play    bool
	Publish bool
}

// Outcome reports what a job produced.
type Outcome struct {
	Path       string
	Text       string // post-truncation text actually synthesized
	Speaker    string // resolved speaker, empty for the default voice
	SampleRate int
	Duration   time.Duration
	Cached     bool
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithCache enables the synthesized-audio cache.
func WithCache(c *synth.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithPlayer enables local playback for jobs that request it.
func WithPlayer(pl Player) Option {
	return func(p *Pipeline) { p.player = pl }
}

// WithPublisher enables result publishing for jobs that request it.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithDefaultSampleRate sets the rate reported in outcomes and result
// messages when the model's WAV container is unreadable.
func WithDefaultSampleRate(rate int) Option {
	return func(p *Pipeline) { p.defaultRate = rate }
}

// Pipeline owns the synthesis flow. Safe for concurrent Say calls as
// long as the injected collaborators are.
type Pipeline struct {
	synth       synth.Synthesizer
	voices      *voice.Resolver
	cache       *synth.Cache
	player      Player
	publisher   Publisher
	outDir      string
	defaultRate int
	log         Logger
}

// New creates a pipeline writing WAV files to outDir.
func New(s synth.Synthesizer, voices *voice.Resolver, outDir string, log Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		synth:  s,
		voices: voices,
		outDir: outDir,
		log:    log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Say runs one job end to end and returns where the audio landed.
func (p *Pipeline) Say(ctx context.Context, job Job) (*Outcome, error) {
	if job.MaxChars > 0 && job.MaxSentences > 0 {
		return nil, ErrBudgetConflict
	}

	raw := strings.TrimSpace(job.Prompt)
	if raw == "" {
		return nil, ErrEmptyPrompt
	}
	speaker, prompt := strings.TrimSpace(job.Speaker), raw
	if speaker == "" {
		speaker, prompt = voice.SplitSpeakerPrefix(raw)
	}

	profile := p.resolveProfile(speaker, job.Profile)
	if profile != nil && profile.Speaker != "" {
		speaker = profile.Speaker
	}

	spoken := prompt
	switch {
	case job.MaxChars > 0:
		spoken = text.TruncateChars(prompt, job.MaxChars)
	case job.MaxSentences > 0:
		spoken = text.TruncateSentences(prompt, job.MaxSentences)
	}
	if spoken == "" {
		return nil, ErrNothingToSay
	}
	if spoken != prompt {
		p.log.Debug("truncated prompt from %d to %d chars", len(prompt), len(spoken))
	}

	wav, cached, err := p.synthesize(ctx, spoken, profile)
	if err != nil {
		return nil, err
	}

	// The filename comes from the full prompt, not the truncated text,
	// so output files stay recognisable.
	name := text.Filename(prompt)
	path, err := audio.WriteFile(p.outDir, name, wav)
	if err != nil {
		return nil, err
	}
	p.log.Info("saved %s (%d bytes)", path, len(wav))

	out := &Outcome{
		Path:    path,
		Text:    spoken,
		Speaker: speaker,
		Cached:  cached,
	}

	// Format metadata is best-effort; the model output is opaque and an
	// unparseable container shouldn't fail a run that already saved it.
	pcm, format, perr := audio.ParseWAV(wav)
	if perr != nil {
		p.log.Warn("output is not a readable wav (%v), skipping metadata and playback", perr)
		out.SampleRate = p.defaultRate
	} else {
		out.SampleRate = format.SampleRate
		out.Duration = audio.Duration(len(pcm), format)
	}

	if job.Play {
		p.play(wav, perr)
	}

	if job.Publish && p.publisher != nil {
		msg := pubsub.ResultMessage{
			ID:         job.ID,
			Prompt:     job.Prompt,
			Speaker:    speaker,
			Text:       spoken,
			OutputPath: path,
			SampleRate: out.SampleRate,
			DurationMs: out.Duration.Milliseconds(),
		}
		if err := p.publisher.PublishResult(ctx, msg); err != nil {
			// The file is already on disk; publishing is advisory.
			p.log.Error("publishing result: %v", err)
		}
	}

	return out, nil
}

// resolveProfile picks the voice-cloning reference: an explicit pair
// wins, then the speaker prefix, then none. Resolution failures fall
// back to the default voice.
func (p *Pipeline) resolveProfile(speaker string, explicit *voice.Profile) *voice.Profile {
	if explicit != nil {
		return explicit
	}
	if speaker == "" || p.voices == nil {
		return nil
	}
	profile, err := p.voices.Resolve(speaker)
	if err != nil {
		p.log.Warn("speaker %q unavailable, using default voice: %v", speaker, err)
		return nil
	}
	return profile
}

// synthesize consults the cache, then the model.
func (p *Pipeline) synthesize(ctx context.Context, spoken string, profile *voice.Profile) (wav []byte, cached bool, err error) {
	req := synth.Request{Text: spoken}
	voiceKey := ""
	if profile != nil {
		req.PromptWavPath = profile.WavPath
		req.PromptText = profile.RefText
		voiceKey = profile.WavPath
	}

	key := synth.Key(voiceKey, spoken)
	if p.cache != nil {
		if data, ok := p.cache.Get(key); ok {
			p.log.Debug("cache hit, skipping synthesis")
			return data, true, nil
		}
	}

	res, err := p.synth.Synthesize(ctx, req)
	if err != nil {
		return nil, false, fmt.Errorf("synthesizing: %w", err)
	}
	if p.cache != nil {
		p.cache.Put(key, res.WAV)
	}
	return res.WAV, false, nil
}

func (p *Pipeline) play(wav []byte, parseErr error) {
	if p.player == nil {
		p.log.Warn("playback requested but no audio device available")
		return
	}
	if parseErr != nil {
		return
	}
	if err := p.player.Play(wav); err != nil {
		p.log.Error("playback: %v", err)
	}
}
