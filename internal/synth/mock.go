package synth

import (
	"context"
	"strings"
	"sync"
)

// Compile-time interface check.
var _ Synthesizer = (*Mock)(nil)

// Mock is a Synthesizer for tests. It records every request and returns
// canned audio (or a canned error).
type Mock struct {
	mu       sync.Mutex
	Requests []Request

	// WAV is returned on success. When nil, a deterministic fake payload
	// derived from the text is returned instead.
	WAV []byte
	Err error
}

func (m *Mock) Synthesize(ctx context.Context, req Request) (*Result, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	wav := m.WAV
	if wav == nil {
		wav = []byte("WAV:" + req.Text)
	}
	return &Result{WAV: wav, SampleRate: 16000}, nil
}

// Calls returns a snapshot of the recorded requests.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.Requests))
	copy(out, m.Requests)
	return out
}
