// Package speech drives sequential speech-synthesis and audio-clip playback
// over highlighted text ranges, reporting the currently voiced range for
// highlight feedback.
package speech

import (
	"errors"
	"time"

	"github.com/nattapol/readalong/internal/textrange"
)

var (
	// ErrEmptyText is returned when asked to speak nothing.
	ErrEmptyText = errors.New("empty text")
	// ErrNoRanges is returned when speak-all is invoked without highlights.
	ErrNoRanges = errors.New("no highlighted ranges")
	// ErrNoClips is returned when clip playback is invoked without clips.
	ErrNoClips = errors.New("no audio clips")
	// ErrSynthesisFailed is returned when a synthesis backend fails.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
)

// BoundaryWord is the event name for word boundaries.
const BoundaryWord = "word"

// BoundaryEvent reports synthesis progress. CharIndex is the rune offset of
// the boundary within the spoken utterance text.
type BoundaryEvent struct {
	Name      string
	CharIndex int
}

// Callbacks receive utterance lifecycle events. Any field may be nil.
// Callbacks from a superseded utterance may still fire after Cancel; callers
// must tolerate them as no-ops.
type Callbacks struct {
	OnBoundary func(BoundaryEvent)
	OnEnd      func()
	OnError    func(error)
}

// Utterance is one piece of text handed to a synthesis backend.
type Utterance struct {
	ID    string
	Text  string
	Lang  string
	Voice Voice
	Rate  float64
}

// Synthesizer is the interface for speech synthesis backends.
type Synthesizer interface {
	// Speak starts voicing the utterance and returns immediately; progress
	// and completion arrive via callbacks.
	Speak(u Utterance, cb Callbacks) error
	// Cancel stops any in-flight utterance.
	Cancel()
	// SupportsBoundaries reports whether the backend emits word-boundary
	// events for the given language.
	SupportsBoundaries(lang string) bool
	// Name returns the backend identifier.
	Name() string
}

// Clip is a pre-recorded audio file associated with a highlighted range.
type Clip struct {
	ID       string
	Range    textrange.Range
	Path     string
	Duration time.Duration
}

// ClipCallbacks receive clip playback events. Any field may be nil.
type ClipCallbacks struct {
	OnPlay  func()
	OnPause func()
	OnEnd   func()
	OnError func(error)
}

// ClipPlayer is the interface for audio-clip playback backends.
type ClipPlayer interface {
	// Play starts the clip at the given rate multiplier and returns
	// immediately. Starting a new clip supersedes any current one.
	Play(clip Clip, rate float64, cb ClipCallbacks) error
	Pause()
	Resume()
	// Stop halts playback and invalidates pending callbacks.
	Stop()
	// Name returns the backend identifier.
	Name() string
}
