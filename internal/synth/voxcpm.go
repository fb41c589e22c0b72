package synth

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/voxworks/voxsay/internal/logger"
)

// Compile-time interface check.
var _ Synthesizer = (*VoxCPM)(nil)

// Generation defaults, matching the model's recommended settings.
const (
	DefaultCFGValue           = 2.0
	DefaultInferenceTimesteps = 10
	DefaultRetryMaxTimes      = 3
	DefaultRetryRatioLimit    = 6.0
	DefaultTimeout            = 5 * time.Minute
)

// VoxCPMOption configures the VoxCPM client.
type VoxCPMOption func(*VoxCPM)

// WithBinary overrides the inference binary name or path.
func WithBinary(bin string) VoxCPMOption {
	return func(v *VoxCPM) { v.bin = bin }
}

// WithCFGValue sets the guidance strength. Higher adheres more closely
// to the prompt at some quality risk.
func WithCFGValue(cfg float64) VoxCPMOption {
	return func(v *VoxCPM) { v.cfgValue = cfg }
}

// WithInferenceTimesteps sets the diffusion step count. Higher is better
// and slower.
func WithInferenceTimesteps(n int) VoxCPMOption {
	return func(v *VoxCPM) { v.timesteps = n }
}

// WithNormalize toggles the external text normalization tool.
func WithNormalize(on bool) VoxCPMOption {
	return func(v *VoxCPM) { v.normalize = on }
}

// WithDenoise toggles the external denoiser on the reference audio.
func WithDenoise(on bool) VoxCPMOption {
	return func(v *VoxCPM) { v.denoise = on }
}

// WithRetryBadcase configures the model's internal retry loop for
// degenerate generations: max attempts and the output/input length ratio
// above which a generation is considered bad.
func WithRetryBadcase(maxTimes int, ratioLimit float64) VoxCPMOption {
	return func(v *VoxCPM) {
		v.retryMaxTimes = maxTimes
		v.retryRatioLimit = ratioLimit
	}
}

// WithTimeout bounds a single inference call.
func WithTimeout(d time.Duration) VoxCPMOption {
	return func(v *VoxCPM) { v.timeout = d }
}

// VoxCPM drives the pretrained VoxCPM model through its CLI. Text goes
// in on stdin, WAV bytes come back on stdout, diagnostics on stderr.
// Each call spawns a fresh subprocess; the model wrapper handles its own
// weight caching between runs.
type VoxCPM struct {
	bin             string
	cfgValue        float64
	timesteps       int
	normalize       bool
	denoise         bool
	retryMaxTimes   int
	retryRatioLimit float64
	timeout         time.Duration
	log             *logger.Logger
}

// NewVoxCPM creates a subprocess-backed synthesizer.
func NewVoxCPM(bin string, log *logger.Logger, opts ...VoxCPMOption) *VoxCPM {
	v := &VoxCPM{
		bin:             bin,
		cfgValue:        DefaultCFGValue,
		timesteps:       DefaultInferenceTimesteps,
		normalize:       true,
		denoise:         true,
		retryMaxTimes:   DefaultRetryMaxTimes,
		retryRatioLimit: DefaultRetryRatioLimit,
		timeout:         DefaultTimeout,
		log:             log.Named("voxcpm"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Synthesize runs one inference call. Honors ctx cancellation and the
// configured timeout.
func (v *VoxCPM) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	args := v.buildArgs(req)
	cmd := exec.CommandContext(ctx, v.bin, args...)
	cmd.Stdin = strings.NewReader(req.Text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	v.log.Debug("synthesizing %d chars (clone=%v)", len(req.Text), req.PromptWavPath != "")

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("inference cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("inference failed: %w: %s", err, firstLine(stderr.String()))
	}

	// The wrapper logs progress to stderr; surface it in verbose mode.
	for _, line := range strings.Split(strings.TrimSpace(stderr.String()), "\n") {
		if line != "" {
			v.log.Debug("model: %s", line)
		}
	}

	wav := stdout.Bytes()
	if len(wav) == 0 {
		return nil, ErrNoAudio
	}

	v.log.Info("synthesized %d bytes in %s", len(wav), time.Since(start).Round(time.Millisecond))
	return &Result{WAV: wav}, nil
}

// buildArgs assembles the CLI arguments for one call. Text is always
// piped on stdin and audio always comes back on stdout.
func (v *VoxCPM) buildArgs(req Request) []string {
	args := []string{
		"generate",
		"--text", "-",
		"--output", "-",
		"--cfg-value", strconv.FormatFloat(v.cfgValue, 'f', -1, 64),
		"--inference-timesteps", strconv.Itoa(v.timesteps),
	}
	if v.normalize {
		args = append(args, "--normalize")
	}
	if v.denoise {
		args = append(args, "--denoise")
	}
	if v.retryMaxTimes > 0 {
		args = append(args,
			"--retry-badcase",
			"--retry-badcase-max-times", strconv.Itoa(v.retryMaxTimes),
			"--retry-badcase-ratio-threshold", strconv.FormatFloat(v.retryRatioLimit, 'f', -1, 64),
		)
	}
	if req.PromptWavPath != "" && req.PromptText != "" {
		args = append(args,
			"--prompt-wav-path", req.PromptWavPath,
			"--prompt-text", req.PromptText,
		)
	}
	return args
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
