package speech

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rivo/uniseg"

	"github.com/nattapol/readalong/internal/wav"
)

// TimedSynthesizer is a headless synthesis backend: it paces through the
// utterance at a words-per-minute rate, emitting word-boundary events on
// schedule. It produces no sound, which makes the whole pipeline runnable
// and testable without a platform speech API.
type TimedSynthesizer struct {
	mu      sync.Mutex
	wpm     int
	current chan struct{}
	logger  *slog.Logger
}

// NewTimedSynthesizer creates a timed backend speaking at the given
// words-per-minute baseline.
func NewTimedSynthesizer(wpm int, logger *slog.Logger) *TimedSynthesizer {
	if wpm < 1 {
		wpm = 180
	}
	return &TimedSynthesizer{wpm: wpm, logger: logger}
}

// Name returns the backend identifier.
func (t *TimedSynthesizer) Name() string { return "timed" }

// SupportsBoundaries reports word-boundary availability. Logographic
// scripts get none, matching platform synthesizers.
func (t *TimedSynthesizer) SupportsBoundaries(lang string) bool {
	return !IsLogographic(lang)
}

// Voices returns the built-in voice inventory.
func (t *TimedSynthesizer) Voices() []Voice {
	return []Voice{
		{Name: "Timed English Female", Lang: "en-US", Gender: "female"},
		{Name: "Timed English Male", Lang: "en-US", Gender: "male"},
		{Name: "Timed Thai Female", Lang: "th-TH", Gender: "female"},
		{Name: "Timed Chinese Female", Lang: "zh-CN", Gender: "female"},
	}
}

// OnVoicesChanged registers a change listener. The inventory is static, so
// the listener never fires; AwaitVoices tolerates that via its timeout.
func (t *TimedSynthesizer) OnVoicesChanged(fn func()) {}

// Speak paces through the utterance, firing a boundary at each word start
// and OnEnd after the last word's interval elapses.
func (t *TimedSynthesizer) Speak(u Utterance, cb Callbacks) error {
	if u.Text == "" {
		return ErrEmptyText
	}

	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	interval := time.Duration(float64(time.Minute) / (float64(t.wpm) * rate))

	t.mu.Lock()
	if t.current != nil {
		close(t.current)
	}
	stop := make(chan struct{})
	t.current = stop
	t.mu.Unlock()

	words := wordStarts(u.Text)
	emitBoundaries := cb.OnBoundary != nil && t.SupportsBoundaries(u.Lang)

	t.logger.Debug("timed synthesis started",
		"utterance_id", u.ID,
		"words", len(words),
		"interval", interval,
	)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for _, w := range words {
			if emitBoundaries {
				cb.OnBoundary(BoundaryEvent{Name: BoundaryWord, CharIndex: w})
			}
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
		if cb.OnEnd != nil {
			cb.OnEnd()
		}
	}()

	return nil
}

// Cancel stops the in-flight utterance, if any.
func (t *TimedSynthesizer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		close(t.current)
		t.current = nil
	}
}

// wordStarts returns the rune offset of each word in text, in order.
func wordStarts(text string) []int {
	var starts []int
	offset := 0
	state := -1
	var word string
	for len(text) > 0 {
		word, text, state = uniseg.FirstWordInString(text, state)
		if strings.TrimSpace(word) != "" {
			starts = append(starts, offset)
		}
		offset += len([]rune(word))
	}
	return starts
}

// TimedClipPlayer plays clips by waiting out their duration, probing WAV
// headers when the clip carries none. Like TimedSynthesizer it is silent
// but behaviorally complete, including pause and resume.
type TimedClipPlayer struct {
	mu      sync.Mutex
	session *clipSession
	logger  *slog.Logger
}

// NewTimedClipPlayer creates a silent clip player.
func NewTimedClipPlayer(logger *slog.Logger) *TimedClipPlayer {
	return &TimedClipPlayer{logger: logger}
}

// Name returns the backend identifier.
func (p *TimedClipPlayer) Name() string { return "timed" }

// Play waits out the clip duration, divided by the rate multiplier.
func (p *TimedClipPlayer) Play(clip Clip, rate float64, cb ClipCallbacks) error {
	dur := clip.Duration
	if dur == 0 {
		info, err := wav.ProbeFile(clip.Path)
		if err != nil {
			return err
		}
		dur = info.Duration()
	}
	if rate <= 0 {
		rate = 1
	}
	dur = time.Duration(float64(dur) / rate)

	session := newClipSession()

	p.mu.Lock()
	if p.session != nil {
		p.session.stop()
	}
	p.session = session
	p.mu.Unlock()

	p.logger.Debug("timed clip started", "clip_id", clip.ID, "duration", dur)

	if cb.OnPlay != nil {
		cb.OnPlay()
	}
	go session.run(dur, cb)
	return nil
}

// Pause suspends the current clip.
func (p *TimedClipPlayer) Pause() {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()
	if session != nil {
		session.signal(session.pauseCh)
	}
}

// Resume continues a paused clip.
func (p *TimedClipPlayer) Resume() {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()
	if session != nil {
		session.signal(session.resumeCh)
	}
}

// Stop halts the current clip. Its pending callbacks never fire.
func (p *TimedClipPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		p.session.stop()
		p.session = nil
	}
}

type clipSession struct {
	stopCh   chan struct{}
	stopOnce sync.Once
	pauseCh  chan struct{}
	resumeCh chan struct{}
}

func newClipSession() *clipSession {
	return &clipSession{
		stopCh:   make(chan struct{}),
		pauseCh:  make(chan struct{}, 1),
		resumeCh: make(chan struct{}, 1),
	}
}

func (s *clipSession) stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *clipSession) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *clipSession) run(dur time.Duration, cb ClipCallbacks) {
	timer := time.NewTimer(dur)
	defer func() { timer.Stop() }()

	started := time.Now()
	remaining := dur

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			if cb.OnEnd != nil {
				cb.OnEnd()
			}
			return
		case <-s.pauseCh:
			remaining -= time.Since(started)
			if remaining < 0 {
				remaining = 0
			}
			timer.Stop()
			if cb.OnPause != nil {
				cb.OnPause()
			}
			select {
			case <-s.stopCh:
				return
			case <-s.resumeCh:
				started = time.Now()
				timer = time.NewTimer(remaining)
				if cb.OnPlay != nil {
					cb.OnPlay()
				}
			}
		}
	}
}
