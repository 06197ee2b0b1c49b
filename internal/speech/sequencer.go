package speech

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"

	"github.com/nattapol/readalong/internal/textrange"
)

// State is the playback lifecycle state.
type State int

const (
	// StateIdle means nothing is playing.
	StateIdle State = iota
	// StatePlaying means a unit is being voiced.
	StatePlaying
	// StatePaused means clip playback is suspended.
	StatePaused
)

// Status is the observable speaking state: which unit is being voiced, and
// whether a speak-all session is running.
type Status struct {
	State State
	// CurrentIndex is the position of the active unit in the ordered list,
	// or -1 when nothing is voiced.
	CurrentIndex int
	PlayingAll   bool
}

// Sequencer drives sequential playback over ordered speakable units, one
// session at a time. Starting a new session cancels any in-flight one.
//
// Each session carries a generation number; callbacks from superseded
// sessions compare their generation against the current one and no-op when
// stale. That replaces relying on reference overwrite to invalidate late
// platform callbacks.
type Sequencer struct {
	mu       sync.Mutex
	gen      uint64
	synth    Synthesizer
	player   ClipPlayer
	voices   []Voice
	prefs    []Preference
	rate     float64
	tick     time.Duration
	status   Status
	onChange func(Status)
	logger   *slog.Logger
}

// defaultBoundaryTick is the estimation interval used when word boundaries
// are unavailable.
const defaultBoundaryTick = 500 * time.Millisecond

// NewSequencer creates a sequencer over the given backends.
func NewSequencer(synth Synthesizer, player ClipPlayer, logger *slog.Logger) *Sequencer {
	return &Sequencer{
		synth:  synth,
		player: player,
		rate:   1,
		tick:   defaultBoundaryTick,
		status: Status{State: StateIdle, CurrentIndex: -1},
		logger: logger,
	}
}

// SetVoices installs the available voice inventory.
func (s *Sequencer) SetVoices(voices []Voice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices = voices
}

// SetPreferences installs the voice-selection policy.
func (s *Sequencer) SetPreferences(prefs []Preference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = prefs
}

// SetRate sets the playback rate multiplier for subsequent sessions.
func (s *Sequencer) SetRate(rate float64) {
	if rate <= 0 {
		rate = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
}

// SetBoundaryTick sets the estimation interval for languages without word
// boundaries.
func (s *Sequencer) SetBoundaryTick(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick = d
}

// OnStatusChange registers the speaking-state observer.
func (s *Sequencer) OnStatusChange(fn func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Status returns the current speaking state.
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SpeakText voices a single piece of text, detecting its language and
// selecting a voice for it. No index tracking applies.
func (s *Sequencer) SpeakText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	gen := s.begin(false)
	u := s.newUtterance(text, DetectLanguage(text))

	s.logger.Debug("speaking text", "utterance_id", u.ID, "lang", u.Lang, "text_length", len(text))

	return s.synth.Speak(u, Callbacks{
		OnEnd:   func() { s.finish(gen) },
		OnError: func(err error) { s.finishWithError(gen, err) },
	})
}

// SpeakAll voices every highlighted range in order as one utterance, the
// range slices joined by single spaces. Word-boundary events are mapped back
// to a range index through a precomputed character table; when the backend
// has no boundaries for the language, progression is estimated on a fixed
// interval instead.
func (s *Sequencer) SpeakAll(plain string, ranges []textrange.Range) error {
	if len(ranges) == 0 {
		return ErrNoRanges
	}

	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.Slice(plain)
	}
	joined := strings.Join(parts, " ")
	lang := DetectLanguage(plain)

	gen := s.begin(true)
	u := s.newUtterance(joined, lang)

	s.logger.Debug("speaking all highlights",
		"utterance_id", u.ID,
		"lang", lang,
		"ranges", len(ranges),
		"voice", u.Voice.Name,
	)

	if s.synth.SupportsBoundaries(lang) {
		table := buildCharTable(parts)
		return s.synth.Speak(u, Callbacks{
			OnBoundary: func(ev BoundaryEvent) {
				if ev.Name != BoundaryWord {
					return
				}
				if idx, ok := table.rangeAt(ev.CharIndex); ok {
					s.update(gen, func(st *Status) { st.CurrentIndex = idx })
				}
			},
			OnEnd:   func() { s.finish(gen) },
			OnError: func(err error) { s.finishWithError(gen, err) },
		})
	}

	// No word boundaries for this language: estimate progression with a
	// fixed-interval timer over segmented word counts. Explicitly an
	// approximation.
	wordMap := buildWordMap(parts)
	done := make(chan struct{})
	var once sync.Once
	stop := func() { once.Do(func() { close(done) }) }

	err := s.synth.Speak(u, Callbacks{
		OnEnd: func() {
			stop()
			s.finish(gen)
		},
		OnError: func(err error) {
			stop()
			s.finishWithError(gen, err)
		},
	})
	if err != nil {
		stop()
		return err
	}

	go s.estimateProgress(gen, wordMap, done)
	return nil
}

// PlayClips plays the clips strictly in order. The active index updates as
// each clip starts; an error and a natural end both advance to the next
// clip, so one bad clip never stalls the sequence.
func (s *Sequencer) PlayClips(clips []Clip) error {
	if len(clips) == 0 {
		return ErrNoClips
	}

	gen := s.begin(true)
	s.playClipAt(gen, clips, 0)
	return nil
}

// PlayClip plays a single clip from the list, tracking its index.
func (s *Sequencer) PlayClip(clips []Clip, index int) error {
	if index < 0 || index >= len(clips) {
		return ErrNoClips
	}

	gen := s.begin(false)
	if !s.update(gen, func(st *Status) { st.CurrentIndex = index }) {
		return nil
	}

	clip := clips[index]
	s.logger.Debug("playing clip", "clip_id", clip.ID, "path", clip.Path)

	err := s.player.Play(clip, s.currentRate(), ClipCallbacks{
		OnPlay:  func() { s.update(gen, func(st *Status) { st.State = StatePlaying }) },
		OnPause: func() { s.update(gen, func(st *Status) { st.State = StatePaused }) },
		OnEnd:   func() { s.finish(gen) },
		OnError: func(err error) { s.finishWithError(gen, err) },
	})
	if err != nil {
		s.logger.Debug("clip playback failed", "clip_id", clip.ID, "error", err)
		s.finish(gen)
	}
	return nil
}

// Pause suspends clip playback. Synthesis utterances are not pausable; the
// paused state arrives through the player's callback.
func (s *Sequencer) Pause() {
	s.player.Pause()
}

// Resume continues paused clip playback.
func (s *Sequencer) Resume() {
	s.player.Resume()
}

// Stop cancels the current session and resets the speaking state.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()

	s.synth.Cancel()
	s.player.Stop()

	s.mu.Lock()
	s.status = Status{State: StateIdle, CurrentIndex: -1}
	st, fn := s.status, s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// begin starts a new session: it supersedes the previous generation, cancels
// both backends, and moves to the playing state. Cancel-then-start, never
// queuing.
func (s *Sequencer) begin(all bool) uint64 {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	// Late callbacks from the superseded session are already stale at this
	// point and will no-op against the new generation.
	s.synth.Cancel()
	s.player.Stop()

	s.mu.Lock()
	s.status = Status{State: StatePlaying, CurrentIndex: -1, PlayingAll: all}
	st, fn := s.status, s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(st)
	}
	return gen
}

// update applies a status mutation if gen is still current, notifying the
// observer. It reports whether the session was still live.
func (s *Sequencer) update(gen uint64, mutate func(*Status)) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	mutate(&s.status)
	st, fn := s.status, s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(st)
	}
	return true
}

func (s *Sequencer) finish(gen uint64) {
	s.update(gen, func(st *Status) {
		*st = Status{State: StateIdle, CurrentIndex: -1}
	})
}

// finishWithError treats a playback error like natural completion: the state
// resets and nothing surfaces to the caller.
func (s *Sequencer) finishWithError(gen uint64, err error) {
	s.logger.Debug("playback ended with error", "error", err)
	s.finish(gen)
}

func (s *Sequencer) playClipAt(gen uint64, clips []Clip, index int) {
	if index >= len(clips) {
		s.finish(gen)
		return
	}

	if !s.update(gen, func(st *Status) {
		st.State = StatePlaying
		st.CurrentIndex = index
	}) {
		return
	}

	clip := clips[index]
	err := s.player.Play(clip, s.currentRate(), ClipCallbacks{
		OnPlay:  func() { s.update(gen, func(st *Status) { st.State = StatePlaying }) },
		OnPause: func() { s.update(gen, func(st *Status) { st.State = StatePaused }) },
		OnEnd:   func() { s.playClipAt(gen, clips, index+1) },
		OnError: func(err error) {
			// Swallowed: an unplayable clip must not stall the sequence.
			s.logger.Debug("clip error, advancing", "clip_id", clip.ID, "error", err)
			s.playClipAt(gen, clips, index+1)
		},
	})
	if err != nil {
		s.logger.Debug("clip start failed, advancing", "clip_id", clip.ID, "error", err)
		s.playClipAt(gen, clips, index+1)
	}
}

// estimateProgress advances the current index on a fixed interval across the
// per-range word counts until the utterance ends or the words run out.
func (s *Sequencer) estimateProgress(gen uint64, wordMap []int, done <-chan struct{}) {
	ticker := time.NewTicker(s.currentTick())
	defer ticker.Stop()

	for _, rangeIndex := range wordMap {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		if !s.update(gen, func(st *Status) { st.CurrentIndex = rangeIndex }) {
			return
		}
	}

	s.update(gen, func(st *Status) { st.CurrentIndex = -1 })
}

func (s *Sequencer) newUtterance(text, lang string) Utterance {
	s.mu.Lock()
	voices, prefs, rate := s.voices, s.prefs, s.rate
	s.mu.Unlock()

	voice, _ := SelectVoice(voices, lang, prefs)
	return Utterance{
		ID:    uuid.New().String(),
		Text:  text,
		Lang:  lang,
		Voice: voice,
		Rate:  rate,
	}
}

func (s *Sequencer) currentRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

func (s *Sequencer) currentTick() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// charTable maps rune offsets in a joined utterance back to range indices.
type charTable []struct {
	start, end, index int
}

// buildCharTable lays the joined parts out with one separating space, the
// same layout SpeakAll hands to the synthesizer.
func buildCharTable(parts []string) charTable {
	table := make(charTable, 0, len(parts))
	running := 0
	for i, part := range parts {
		start := running
		end := start + len([]rune(part))
		table = append(table, struct{ start, end, index int }{start, end, i})
		running = end + 1 // joining space
	}
	return table
}

func (t charTable) rangeAt(charIndex int) (int, bool) {
	for _, entry := range t {
		if charIndex >= entry.start && charIndex < entry.end {
			return entry.index, true
		}
	}
	return 0, false
}

// buildWordMap returns, for each spoken word in order, the index of the
// range it belongs to.
func buildWordMap(parts []string) []int {
	var wordMap []int
	for i, part := range parts {
		for n := wordCount(part); n > 0; n-- {
			wordMap = append(wordMap, i)
		}
	}
	return wordMap
}

// wordCount segments text into words. Unicode word segmentation handles
// scripts without spaces, which is the whole point here.
func wordCount(text string) int {
	count := 0
	state := -1
	var word string
	for len(text) > 0 {
		word, text, state = uniseg.FirstWordInString(text, state)
		if strings.TrimSpace(word) != "" {
			count++
		}
	}
	return count
}
