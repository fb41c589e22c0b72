// voxsay — speak text through a pretrained TTS model.
//
// Usage:
//
//	voxsay [flags] "your prompt"
//	voxsay [flags] "speaker: your prompt"
//	voxsay -listen [flags]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/voxworks/voxsay/internal/audio"
	"github.com/voxworks/voxsay/internal/config"
	"github.com/voxworks/voxsay/internal/display"
	"github.com/voxworks/voxsay/internal/logger"
	"github.com/voxworks/voxsay/internal/pipeline"
	"github.com/voxworks/voxsay/internal/pubsub"
	"github.com/voxworks/voxsay/internal/synth"
	"github.com/voxworks/voxsay/internal/voice"
)

func main() {
	maxChars := flag.Int("maxchars", 0, "maximum characters, truncating at sentence boundaries")
	maxSentences := flag.Int("maxsentences", 0, "maximum number of sentences to process")
	promptWav := flag.String("prompt-wav", "", "path to a reference WAV for voice cloning")
	promptText := flag.String("prompt-text", "", "transcript of the reference WAV")
	voicesDir := flag.String("voices", "", "directory of speaker reference pairs (overrides VOXSAY_VOICES_DIR)")
	outDir := flag.String("out", "", "output directory for WAV files (overrides VOXSAY_OUTPUT_DIR)")
	play := flag.Bool("play", false, "play the synthesized audio after saving")
	publish := flag.Bool("publish", false, "publish the result over Redis pub/sub")
	listen := flag.Bool("listen", false, "serve prompts from the Redis prompt channel instead of the command line")
	noCache := flag.Bool("no-cache", false, "bypass the synthesized-audio cache")
	diskCache := flag.Bool("disk-cache", true, "persist cached audio to disk (reads from disk even when false)")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", "stderr", "file to write logs to (\"stderr\" to log to console)")
	flag.Usage = usage
	flag.Parse()

	// Mutually exclusive truncation budgets, mirrored in the pipeline.
	if *maxChars > 0 && *maxSentences > 0 {
		fatal("-maxchars and -maxsentences are mutually exclusive")
	}
	// The cloning reference only works as a pair.
	if (*promptWav == "") != (*promptText == "") {
		fatal("-prompt-wav and -prompt-text must be supplied together")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("config: %v", err)
	}
	if *voicesDir != "" {
		cfg.VoicesDir = *voicesDir
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}
	if *publish {
		cfg.PublishResults = true
	}

	// Configure logger.
	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		if dir := filepath.Dir(*logFile); dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}
	log := logger.New(logLevel, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Wire dependencies.
	model := synth.NewVoxCPM(cfg.ModelBin, log, synth.WithTimeout(cfg.SynthTimeout))
	voices := voice.NewResolver(cfg.VoicesDir, log)

	opts := []pipeline.Option{pipeline.WithDefaultSampleRate(cfg.SampleRate)}
	if !*noCache {
		opts = append(opts, pipeline.WithCache(synth.NewCache(cfg.CacheDir, *diskCache, log)))
	}

	if *play {
		opts = append(opts, pipeline.WithPlayer(audio.NewPlayer(log)))
	}

	var bus *pubsub.Client
	if cfg.PublishResults || *listen {
		bus, err = pubsub.New(cfg.RedisURL, log,
			pubsub.WithChannels(cfg.PromptChannel, cfg.ResultChannel),
		)
		if err != nil {
			fatal("redis: %v", err)
		}
		defer bus.Close()
		opts = append(opts, pipeline.WithPublisher(bus))
	}

	p := pipeline.New(model, voices, cfg.OutputDir, log, opts...)

	if *listen {
		runListen(ctx, p, bus, cfg, *play, log)
		return
	}

	prompt := flag.Arg(0)
	if prompt == "" {
		usage()
		os.Exit(2)
	}

	var profile *voice.Profile
	if *promptWav != "" {
		profile, err = voice.FromPair(*promptWav, *promptText)
		if err != nil {
			fatal("voice reference: %v", err)
		}
	}

	out, err := p.Say(ctx, pipeline.Job{
		Prompt:       prompt,
		MaxChars:     *maxChars,
		MaxSentences: *maxSentences,
		Profile:      profile,
		Play:         *play,
		Publish:      cfg.PublishResults,
	})
	if err != nil {
		fatal("%v", err)
	}

	// Child processes (editor hooks, wrapper scripts) can pick up the
	// last output path from the environment.
	os.Setenv("LAST_WAV", out.Path)

	fmt.Println(display.Saved(out.Path))
	fmt.Println(display.Summary(out.Speaker, out.SampleRate, out.Duration, out.Cached))
}

// runListen serves prompt messages until the context is cancelled.
func runListen(ctx context.Context, p *pipeline.Pipeline, bus *pubsub.Client, cfg *config.Config, play bool, log *logger.Logger) {
	fmt.Println(display.ListenBanner(cfg.PromptChannel, cfg.ListenWorkers))

	err := bus.Listen(ctx, cfg.ListenWorkers, func(ctx context.Context, msg pubsub.PromptMessage) error {
		out, err := p.Say(ctx, pipeline.Job{
			ID:           msg.ID,
			Prompt:       msg.Prompt,
			Speaker:      msg.Speaker,
			MaxChars:     msg.MaxChars,
			MaxSentences: msg.MaxSentences,
			Play:         play,
			Publish:      true, // listen mode always announces results
		})
		if err != nil {
			return err
		}
		log.Info("prompt %s -> %s", msg.ID, out.Path)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		fatal("listen: %v", err)
	}
	log.Info("listener stopped")
}

func usage() {
	fmt.Fprintf(os.Stderr, `voxsay — speak text through a pretrained TTS model

Usage:
  voxsay [flags] "your prompt"
  voxsay [flags] "speaker: your prompt"
  voxsay -listen [flags]

A "speaker:" prefix selects a voice-cloning reference pair from the
voices directory (<speaker>.wav + <speaker>.txt). Incomplete pairs fall
back to the model's default voice.

Flags:
`)
	flag.PrintDefaults()
}

func fatal(format string, args ...any) {
	fmt.Fprintln(os.Stderr, display.Errorf(format, args...))
	os.Exit(1)
}
