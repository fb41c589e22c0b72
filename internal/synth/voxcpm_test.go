package synth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/voxworks/voxsay/internal/logger"
)

// stubModel writes an executable shell script standing in for the
// inference binary.
func stubModel(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxcpm-stub")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVoxCPMBuildArgs(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)

	t.Run("defaults", func(t *testing.T) {
		v := NewVoxCPM("voxcpm", log)
		args := strings.Join(v.buildArgs(Request{Text: "hi"}), " ")

		for _, want := range []string{
			"generate",
			"--text -",
			"--output -",
			"--cfg-value 2",
			"--inference-timesteps 10",
			"--normalize",
			"--denoise",
			"--retry-badcase-max-times 3",
			"--retry-badcase-ratio-threshold 6",
		} {
			if !strings.Contains(args, want) {
				t.Errorf("args missing %q: %s", want, args)
			}
		}
		if strings.Contains(args, "--prompt-wav-path") {
			t.Errorf("clone flags present without a profile: %s", args)
		}
	})

	t.Run("voice cloning pair", func(t *testing.T) {
		v := NewVoxCPM("voxcpm", log)
		args := strings.Join(v.buildArgs(Request{
			Text:          "hi",
			PromptWavPath: "voices/alice.wav",
			PromptText:    "reference line",
		}), " ")

		if !strings.Contains(args, "--prompt-wav-path voices/alice.wav") {
			t.Errorf("missing prompt wav: %s", args)
		}
		if !strings.Contains(args, "--prompt-text reference line") {
			t.Errorf("missing prompt text: %s", args)
		}
	})

	t.Run("half a pair is ignored", func(t *testing.T) {
		v := NewVoxCPM("voxcpm", log)
		args := strings.Join(v.buildArgs(Request{Text: "hi", PromptWavPath: "alice.wav"}), " ")
		if strings.Contains(args, "--prompt-wav-path") {
			t.Errorf("wav passed without transcript: %s", args)
		}
	})

	t.Run("options override defaults", func(t *testing.T) {
		v := NewVoxCPM("voxcpm", log,
			WithCFGValue(1.5),
			WithInferenceTimesteps(20),
			WithNormalize(false),
			WithDenoise(false),
			WithRetryBadcase(0, 0),
		)
		args := strings.Join(v.buildArgs(Request{Text: "hi"}), " ")

		if !strings.Contains(args, "--cfg-value 1.5") {
			t.Errorf("cfg value not applied: %s", args)
		}
		if !strings.Contains(args, "--inference-timesteps 20") {
			t.Errorf("timesteps not applied: %s", args)
		}
		for _, absent := range []string{"--normalize", "--denoise", "--retry-badcase"} {
			if strings.Contains(args, absent) {
				t.Errorf("flag %q should be off: %s", absent, args)
			}
		}
	})
}

func TestVoxCPMEmptyText(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	v := NewVoxCPM("voxcpm", log)

	if _, err := v.Synthesize(context.Background(), Request{Text: "   "}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("got %v, want ErrEmptyText", err)
	}
}

func TestVoxCPMSynthesize(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)

	t.Run("returns stdout as audio", func(t *testing.T) {
		bin := stubModel(t, `cat >/dev/null; printf 'RIFFfakewav'`)
		v := NewVoxCPM(bin, log)

		res, err := v.Synthesize(context.Background(), Request{Text: "hello"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(res.WAV) != "RIFFfakewav" {
			t.Errorf("wav = %q", res.WAV)
		}
	})

	t.Run("empty stdout", func(t *testing.T) {
		bin := stubModel(t, `cat >/dev/null`)
		v := NewVoxCPM(bin, log)

		if _, err := v.Synthesize(context.Background(), Request{Text: "hello"}); !errors.Is(err, ErrNoAudio) {
			t.Errorf("got %v, want ErrNoAudio", err)
		}
	})

	t.Run("nonzero exit surfaces stderr", func(t *testing.T) {
		bin := stubModel(t, `cat >/dev/null; echo 'weights not found' >&2; exit 3`)
		v := NewVoxCPM(bin, log)

		_, err := v.Synthesize(context.Background(), Request{Text: "hello"})
		if err == nil {
			t.Fatal("expected an error")
		}
		if !strings.Contains(err.Error(), "weights not found") {
			t.Errorf("error %q does not carry the model's stderr", err)
		}
	})

	t.Run("pre-cancelled context", func(t *testing.T) {
		bin := stubModel(t, `sleep 5`)
		v := NewVoxCPM(bin, log)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := v.Synthesize(ctx, Request{Text: "hello"}); !errors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	})

	t.Run("timeout kills the subprocess", func(t *testing.T) {
		bin := stubModel(t, `sleep 5`)
		v := NewVoxCPM(bin, log, WithTimeout(50*time.Millisecond))

		start := time.Now()
		_, err := v.Synthesize(context.Background(), Request{Text: "hello"})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("got %v, want context.DeadlineExceeded", err)
		}
		if time.Since(start) > 2*time.Second {
			t.Error("timeout did not stop the subprocess promptly")
		}
	})
}
