package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nattapol/readalong/internal/config"
	"github.com/nattapol/readalong/internal/logging"
	"github.com/nattapol/readalong/internal/session"
	"github.com/nattapol/readalong/internal/speech"
)

const sampleDocument = `<p>The <b>quick</b> brown fox jumps over the lazy dog.</p>` +
	`<p>Pack my box with <i>five dozen</i> liquor jugs.</p>`

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		// Use stderr before logger is initialized
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Initialize structured logger
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting readalong", "version", "0.1.0")

	logger.Info("configuration loaded",
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat,
		"speech_engine", cfg.SpeechEngine,
		"default_rate", cfg.DefaultRate,
		"max_text_length", cfg.MaxTextLength,
	)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	// Initialize the synthesis backend registry
	registry := speech.NewRegistry()

	timed := speech.NewTimedSynthesizer(cfg.SpeechWPM, logger)
	if err := registry.Register(timed); err != nil {
		logger.Error("failed to register timed backend", "error", err)
		os.Exit(1)
	}

	if cfg.SpeechCommand != "" {
		cmdSynth, err := speech.NewCommandSynthesizer(speech.CommandConfig{
			BinaryPath: cfg.SpeechCommand,
		}, logger)
		if err != nil {
			logger.Warn("command backend unavailable", "error", err)
		} else if err := registry.Register(cmdSynth); err != nil {
			logger.Warn("failed to register command backend", "error", err)
		} else {
			logger.Info("command backend registered", "binary", cfg.SpeechCommand)
		}
	}

	if err := registry.SetDefault(cfg.SpeechEngine); err != nil {
		logger.Warn("configured engine not available, using default", "engine", cfg.SpeechEngine)
	}

	synth, err := registry.Default()
	if err != nil {
		logger.Error("no synthesis backend available", "error", err)
		os.Exit(1)
	}
	logger.Info("synthesis backend selected", "backend", synth.Name())

	player := speech.NewTimedClipPlayer(logger)

	// Create the sequencer and wire the voice inventory
	seq := speech.NewSequencer(synth, player, logger)
	seq.SetRate(cfg.DefaultRate)
	seq.SetBoundaryTick(cfg.BoundaryTick)
	seq.SetPreferences(speech.DefaultPreferences())
	if lister, ok := synth.(speech.VoiceLister); ok {
		voices := speech.AwaitVoices(lister, cfg.VoiceWaitTimeout)
		seq.SetVoices(voices)
		logger.Info("voices loaded", "count", len(voices))
	}

	// Load the document
	source := sampleDocument
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			logger.Error("failed to read document", "path", os.Args[1], "error", err)
			os.Exit(1)
		}
		source = string(data)
	}

	editor, err := session.NewMemoryEditor(source)
	if err != nil {
		logger.Error("failed to parse document", "error", err)
		os.Exit(1)
	}

	sess := session.New(editor, seq, session.Options{
		TextColor:     cfg.TextColor,
		TextHighlight: cfg.TextHighlight,
		MaxTextLength: cfg.MaxTextLength,
	}, logger)

	// Highlight the phrases given on the command line, or everything
	var phrases []string
	if len(os.Args) > 2 {
		phrases = os.Args[2:]
	} else if len(os.Args) <= 1 {
		phrases = []string{"quick brown fox", "five dozen"}
	}
	if len(phrases) == 0 {
		editor.SelectAll()
		if err := sess.ConfirmHighlight(); err != nil {
			logger.Error("failed to highlight", "error", err)
			os.Exit(1)
		}
	}
	for _, phrase := range phrases {
		if !editor.SelectText(phrase) {
			logger.Warn("phrase not found", "phrase", phrase)
			continue
		}
		if err := sess.ConfirmHighlight(); err != nil {
			logger.Error("failed to highlight", "error", err)
			os.Exit(1)
		}
	}

	// Re-render on every speaking-state change
	done := make(chan struct{}, 1)
	seq.OnStatusChange(func(st speech.Status) {
		fmt.Println(sess.Render())
		if st.State == speech.StateIdle {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})

	fmt.Println(sess.Render())

	if cfg.ClipDir != "" {
		logger.Info("playing clips", "dir", cfg.ClipDir)
		err = sess.PlayClips(cfg.ClipDir)
	} else {
		err = sess.SpeakAll()
	}
	if err != nil {
		logger.Error("playback failed", "error", err)
		os.Exit(1)
	}

	// Wait for playback to finish or a shutdown signal
	select {
	case <-done:
		logger.Info("playback complete")
	case <-ctx.Done():
		sess.Stop()
	}

	// Give late callbacks a moment to settle before exiting
	time.Sleep(50 * time.Millisecond)
	logger.Info("shutdown complete")
}
