// Package voice resolves per-speaker voice-cloning references. A speaker
// is a name prefix on the prompt ("alice: hello there") that maps to a
// reference pair on disk: <voices>/<speaker>.wav (sample audio) and
// <voices>/<speaker>.txt (its transcript). The model clones a voice only
// when it gets both halves, so an incomplete pair falls back to the
// default voice instead of failing the run.
package voice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voxworks/voxsay/internal/logger"
)

// Sentinel errors for resolution failures. All of them mean "proceed
// without cloning", never "abort".
var (
	ErrNoSample         = errors.New("voice sample not found")
	ErrNoTranscript     = errors.New("voice transcript not found")
	ErrEmptyTranscript  = errors.New("voice transcript is empty")
	ErrUnknownExtension = errors.New("voice sample is not a wav file")
)

// Profile is a resolved voice-cloning reference: a sample recording and
// the exact text spoken in it.
type Profile struct {
	Speaker string
	WavPath string
	RefText string
}

// SplitSpeakerPrefix parses an optional "speaker: text" prefix from a
// prompt. The prefix is recognised only when the part before the first
// colon is a single bare name (letters, digits, underscore, dash) and
// something follows the colon. Anything else — including prompts where
// the colon is punctuation ("Warning: do not...") with a multi-word
// lead-in — is treated as plain text.
func SplitSpeakerPrefix(prompt string) (speaker, text string) {
	idx := strings.Index(prompt, ":")
	if idx <= 0 {
		return "", prompt
	}

	name := strings.TrimSpace(prompt[:idx])
	rest := strings.TrimSpace(prompt[idx+1:])
	if name == "" || rest == "" || !isSpeakerName(name) {
		return "", prompt
	}
	return name, rest
}

// isSpeakerName reports whether s looks like a speaker name: starts with
// a letter, then letters, digits, underscore, or dash. Keeps times like
// "12:30" from being read as a speaker prefix.
func isSpeakerName(s string) bool {
	for i, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if i == 0 {
			if !isLetter {
				return false
			}
			continue
		}
		if !isLetter && !(r >= '0' && r <= '9') && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// Resolver looks up voice profiles in a directory of paired files.
type Resolver struct {
	dir string
	log *logger.Logger
}

// NewResolver creates a resolver over the given voices directory.
func NewResolver(dir string, log *logger.Logger) *Resolver {
	return &Resolver{dir: dir, log: log.Named("voice")}
}

// Resolve returns the profile for a speaker, or an error when the pair
// is incomplete. Callers treat any error as "use the default voice".
func (r *Resolver) Resolve(speaker string) (*Profile, error) {
	wavPath := filepath.Join(r.dir, speaker+".wav")
	txtPath := filepath.Join(r.dir, speaker+".txt")

	if _, err := os.Stat(wavPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSample, wavPath)
	}

	raw, err := os.ReadFile(txtPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTranscript, txtPath)
	}
	refText := strings.TrimSpace(string(raw))
	if refText == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTranscript, txtPath)
	}

	r.log.Debug("resolved speaker %q (sample=%s, transcript=%d chars)", speaker, wavPath, len(refText))
	return &Profile{Speaker: speaker, WavPath: wavPath, RefText: refText}, nil
}

// FromPair builds a profile from an explicitly supplied wav path and
// reference text, validating that both halves are usable. Used for the
// -prompt-wav/-prompt-text flags, which bypass directory lookup.
func FromPair(wavPath, refText string) (*Profile, error) {
	if !strings.EqualFold(filepath.Ext(wavPath), ".wav") {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExtension, wavPath)
	}
	if _, err := os.Stat(wavPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSample, wavPath)
	}
	refText = strings.TrimSpace(refText)
	if refText == "" {
		return nil, ErrEmptyTranscript
	}
	return &Profile{WavPath: wavPath, RefText: refText}, nil
}
