package speech

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nattapol/readalong/internal/logging"
	"github.com/nattapol/readalong/internal/textrange"
)

// testTimeout is the maximum time to wait for any test condition.
// This is a failsafe, not primary synchronization.
const testTimeout = 5 * time.Second

func testLogger() *slog.Logger {
	return logging.New("error", "text")
}

// fakeSynth captures the last utterance and callbacks so tests can drive
// boundary and completion events by hand.
type fakeSynth struct {
	mu         sync.Mutex
	boundaries bool
	last       Utterance
	cb         Callbacks
	cancels    int
}

func (f *fakeSynth) Name() string { return "fake" }

func (f *fakeSynth) SupportsBoundaries(lang string) bool { return f.boundaries }

func (f *fakeSynth) Speak(u Utterance, cb Callbacks) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = u
	f.cb = cb
	return nil
}

func (f *fakeSynth) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeSynth) callbacks() Callbacks {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cb
}

func (f *fakeSynth) utterance() Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

// fakePlayer plays clips synchronously: each Play call fires OnPlay then
// either OnEnd or OnError depending on failPaths.
type fakePlayer struct {
	mu        sync.Mutex
	played    []string
	failPaths map[string]bool
	lastCB    ClipCallbacks
	manual    bool
}

func (f *fakePlayer) Name() string { return "fake" }

func (f *fakePlayer) Play(clip Clip, rate float64, cb ClipCallbacks) error {
	f.mu.Lock()
	f.played = append(f.played, clip.Path)
	f.lastCB = cb
	fail := f.failPaths[clip.Path]
	manual := f.manual
	f.mu.Unlock()

	if manual {
		return nil
	}
	if cb.OnPlay != nil {
		cb.OnPlay()
	}
	if fail {
		cb.OnError(errors.New("decode failed"))
	} else {
		cb.OnEnd()
	}
	return nil
}

func (f *fakePlayer) Pause()  {}
func (f *fakePlayer) Resume() {}
func (f *fakePlayer) Stop()   {}

func (f *fakePlayer) playedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

// statusRecorder collects every status the sequencer publishes.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *statusRecorder) record(st Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, st)
}

func (r *statusRecorder) all() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Status(nil), r.statuses...)
}

func (r *statusRecorder) indexSequence() []int {
	var seq []int
	for _, st := range r.all() {
		if len(seq) == 0 || seq[len(seq)-1] != st.CurrentIndex {
			seq = append(seq, st.CurrentIndex)
		}
	}
	return seq
}

func newTestSequencer(synth *fakeSynth, player *fakePlayer) (*Sequencer, *statusRecorder) {
	seq := NewSequencer(synth, player, testLogger())
	rec := &statusRecorder{}
	seq.OnStatusChange(rec.record)
	return seq, rec
}

func TestSpeakText_EmptyText(t *testing.T) {
	seq, _ := newTestSequencer(&fakeSynth{}, &fakePlayer{})

	if err := seq.SpeakText("   "); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestSpeakText_CompletesToIdle(t *testing.T) {
	synth := &fakeSynth{}
	seq, _ := newTestSequencer(synth, &fakePlayer{})

	if err := seq.SpeakText("hello world"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := seq.Status()
	if st.State != StatePlaying {
		t.Errorf("expected playing state, got %v", st.State)
	}

	synth.callbacks().OnEnd()

	st = seq.Status()
	if st.State != StateIdle || st.CurrentIndex != -1 {
		t.Errorf("expected idle state after end, got %+v", st)
	}
}

func TestSpeakAll_NoRanges(t *testing.T) {
	seq, _ := newTestSequencer(&fakeSynth{}, &fakePlayer{})

	if err := seq.SpeakAll("hello", nil); !errors.Is(err, ErrNoRanges) {
		t.Errorf("expected ErrNoRanges, got %v", err)
	}
}

func TestSpeakAll_JoinsRangeSlices(t *testing.T) {
	synth := &fakeSynth{boundaries: true}
	seq, _ := newTestSequencer(synth, &fakePlayer{})

	plain := "alpha beta gamma"
	ranges := []textrange.Range{{Start: 0, End: 5}, {Start: 11, End: 16}}

	if err := seq.SpeakAll(plain, ranges); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := synth.utterance().Text; got != "alpha gamma" {
		t.Errorf("expected joined utterance 'alpha gamma', got %q", got)
	}
}

func TestSpeakAll_BoundaryMapsToRangeIndex(t *testing.T) {
	synth := &fakeSynth{boundaries: true}
	seq, rec := newTestSequencer(synth, &fakePlayer{})

	plain := "alpha beta gamma"
	ranges := []textrange.Range{{Start: 0, End: 5}, {Start: 11, End: 16}}

	if err := seq.SpeakAll(plain, ranges); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cb := synth.callbacks()
	// Joined utterance is "alpha gamma": offset 0 is range 0, offset 6 is
	// range 1, offset 5 is the joining space and maps to nothing.
	cb.OnBoundary(BoundaryEvent{Name: BoundaryWord, CharIndex: 0})
	if st := seq.Status(); st.CurrentIndex != 0 {
		t.Errorf("expected index 0, got %d", st.CurrentIndex)
	}

	cb.OnBoundary(BoundaryEvent{Name: BoundaryWord, CharIndex: 5})
	if st := seq.Status(); st.CurrentIndex != 0 {
		t.Errorf("expected joining-space boundary to keep index 0, got %d", st.CurrentIndex)
	}

	cb.OnBoundary(BoundaryEvent{Name: BoundaryWord, CharIndex: 6})
	if st := seq.Status(); st.CurrentIndex != 1 {
		t.Errorf("expected index 1, got %d", st.CurrentIndex)
	}

	cb.OnEnd()
	if st := seq.Status(); st.State != StateIdle || st.CurrentIndex != -1 {
		t.Errorf("expected idle after end, got %+v", st)
	}

	seqIndexes := rec.indexSequence()
	want := []int{-1, 0, 1, -1}
	if len(seqIndexes) != len(want) {
		t.Fatalf("expected index sequence %v, got %v", want, seqIndexes)
	}
	for i := range want {
		if seqIndexes[i] != want[i] {
			t.Fatalf("expected index sequence %v, got %v", want, seqIndexes)
		}
	}
}

func TestSpeakAll_IgnoresNonWordBoundaries(t *testing.T) {
	synth := &fakeSynth{boundaries: true}
	seq, _ := newTestSequencer(synth, &fakePlayer{})

	if err := seq.SpeakAll("alpha", []textrange.Range{{Start: 0, End: 5}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	synth.callbacks().OnBoundary(BoundaryEvent{Name: "sentence", CharIndex: 0})
	if st := seq.Status(); st.CurrentIndex != -1 {
		t.Errorf("expected sentence boundary to be ignored, got index %d", st.CurrentIndex)
	}
}

func TestSpeakAll_EstimatesWithoutBoundaries(t *testing.T) {
	synth := &fakeSynth{boundaries: false}
	seq, rec := newTestSequencer(synth, &fakePlayer{})
	seq.SetBoundaryTick(5 * time.Millisecond)

	plain := "alpha beta gamma"
	ranges := []textrange.Range{{Start: 0, End: 5}, {Start: 11, End: 16}}

	if err := seq.SpeakAll(plain, ranges); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sawIndex := func(want int) bool {
		for _, st := range rec.all() {
			if st.CurrentIndex == want {
				return true
			}
		}
		return false
	}

	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) && !sawIndex(1) {
		time.Sleep(time.Millisecond)
	}
	if !sawIndex(0) || !sawIndex(1) {
		t.Fatalf("expected estimation to pass indexes 0 and 1, saw %v", rec.indexSequence())
	}

	synth.callbacks().OnEnd()
	if st := seq.Status(); st.State != StateIdle {
		t.Errorf("expected idle after end, got %+v", st)
	}
}

func TestPlayClips_AdvancesInOrder(t *testing.T) {
	player := &fakePlayer{}
	seq, rec := newTestSequencer(&fakeSynth{}, player)

	clips := []Clip{
		{ID: "a", Path: "a.wav", Range: textrange.Range{Start: 0, End: 5}},
		{ID: "b", Path: "b.wav", Range: textrange.Range{Start: 6, End: 11}},
	}

	if err := seq.PlayClips(clips); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paths := player.playedPaths()
	if len(paths) != 2 || paths[0] != "a.wav" || paths[1] != "b.wav" {
		t.Errorf("expected clips in order, got %v", paths)
	}

	if st := seq.Status(); st.State != StateIdle || st.CurrentIndex != -1 {
		t.Errorf("expected idle after sequence, got %+v", st)
	}

	seqIndexes := rec.indexSequence()
	want := []int{-1, 0, 1, -1}
	if len(seqIndexes) != len(want) {
		t.Fatalf("expected index sequence %v, got %v", want, seqIndexes)
	}
	for i := range want {
		if seqIndexes[i] != want[i] {
			t.Fatalf("expected index sequence %v, got %v", want, seqIndexes)
		}
	}
}

func TestPlayClips_ErrorAdvancesSequence(t *testing.T) {
	player := &fakePlayer{failPaths: map[string]bool{"a.wav": true}}
	seq, _ := newTestSequencer(&fakeSynth{}, player)

	clips := []Clip{
		{ID: "a", Path: "a.wav"},
		{ID: "b", Path: "b.wav"},
	}

	if err := seq.PlayClips(clips); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paths := player.playedPaths()
	if len(paths) != 2 {
		t.Fatalf("expected failed clip to advance to the next, played %v", paths)
	}

	if st := seq.Status(); st.State != StateIdle {
		t.Errorf("expected idle after sequence, got %+v", st)
	}
}

func TestPlayClips_Empty(t *testing.T) {
	seq, _ := newTestSequencer(&fakeSynth{}, &fakePlayer{})

	if err := seq.PlayClips(nil); !errors.Is(err, ErrNoClips) {
		t.Errorf("expected ErrNoClips, got %v", err)
	}
}

func TestPlayClip_SingleIndex(t *testing.T) {
	player := &fakePlayer{manual: true}
	seq, _ := newTestSequencer(&fakeSynth{}, player)

	clips := []Clip{
		{ID: "a", Path: "a.wav"},
		{ID: "b", Path: "b.wav"},
	}

	if err := seq.PlayClip(clips, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if st := seq.Status(); st.CurrentIndex != 1 || st.PlayingAll {
		t.Errorf("expected single-clip status at index 1, got %+v", st)
	}

	paths := player.playedPaths()
	if len(paths) != 1 || paths[0] != "b.wav" {
		t.Errorf("expected only b.wav played, got %v", paths)
	}
}

func TestPlayClip_IndexOutOfRange(t *testing.T) {
	seq, _ := newTestSequencer(&fakeSynth{}, &fakePlayer{})

	if err := seq.PlayClip([]Clip{{ID: "a"}}, 5); !errors.Is(err, ErrNoClips) {
		t.Errorf("expected ErrNoClips, got %v", err)
	}
}

func TestStop_ResetsAndInvalidatesCallbacks(t *testing.T) {
	synth := &fakeSynth{boundaries: true}
	seq, _ := newTestSequencer(synth, &fakePlayer{})

	if err := seq.SpeakAll("alpha", []textrange.Range{{Start: 0, End: 5}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cb := synth.callbacks()

	seq.Stop()
	if st := seq.Status(); st.State != StateIdle || st.CurrentIndex != -1 {
		t.Errorf("expected idle after stop, got %+v", st)
	}

	// Late callbacks from the stopped session must not resurrect state.
	cb.OnBoundary(BoundaryEvent{Name: BoundaryWord, CharIndex: 0})
	cb.OnEnd()
	if st := seq.Status(); st.State != StateIdle || st.CurrentIndex != -1 {
		t.Errorf("expected stale callbacks to no-op, got %+v", st)
	}
}

func TestNewSessionSupersedesOld(t *testing.T) {
	synth := &fakeSynth{boundaries: true}
	seq, _ := newTestSequencer(synth, &fakePlayer{})

	if err := seq.SpeakAll("alpha beta", []textrange.Range{{Start: 0, End: 5}, {Start: 6, End: 10}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	oldCB := synth.callbacks()

	if err := seq.SpeakText("gamma"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The superseded session's boundary arrives late.
	oldCB.OnBoundary(BoundaryEvent{Name: BoundaryWord, CharIndex: 0})
	if st := seq.Status(); st.CurrentIndex != -1 {
		t.Errorf("expected stale boundary to no-op, got index %d", st.CurrentIndex)
	}
	if st := seq.Status(); st.State != StatePlaying {
		t.Errorf("expected new session still playing, got %+v", st)
	}
}

func TestPauseResume_StateFollowsPlayer(t *testing.T) {
	player := &fakePlayer{manual: true}
	seq, _ := newTestSequencer(&fakeSynth{}, player)

	if err := seq.PlayClips([]Clip{{ID: "a", Path: "a.wav"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	player.mu.Lock()
	cb := player.lastCB
	player.mu.Unlock()

	cb.OnPause()
	if st := seq.Status(); st.State != StatePaused {
		t.Errorf("expected paused state, got %v", st.State)
	}

	cb.OnPlay()
	if st := seq.Status(); st.State != StatePlaying {
		t.Errorf("expected playing state after resume, got %v", st.State)
	}
}

func TestSpeakAll_SelectsVoiceForLanguage(t *testing.T) {
	synth := &fakeSynth{boundaries: true}
	seq, _ := newTestSequencer(synth, &fakePlayer{})
	seq.SetVoices([]Voice{
		{Name: "Plain English", Lang: "en-US"},
		{Name: "Samantha", Lang: "en-US"},
	})
	seq.SetPreferences(DefaultPreferences())

	if err := seq.SpeakAll("alpha", []textrange.Range{{Start: 0, End: 5}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := synth.utterance().Voice.Name; got != "Samantha" {
		t.Errorf("expected shortlist voice, got %q", got)
	}
}

func TestSetRate_AppliesToUtterances(t *testing.T) {
	synth := &fakeSynth{}
	seq, _ := newTestSequencer(synth, &fakePlayer{})
	seq.SetRate(1.5)

	if err := seq.SpeakText("hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := synth.utterance().Rate; got != 1.5 {
		t.Errorf("expected rate 1.5, got %v", got)
	}
}

func TestBuildCharTable(t *testing.T) {
	table := buildCharTable([]string{"alpha", "gamma"})

	cases := []struct {
		char  int
		index int
		ok    bool
	}{
		{0, 0, true},
		{4, 0, true},
		{5, 0, false}, // joining space
		{6, 1, true},
		{10, 1, true},
		{11, 0, false},
	}
	for _, c := range cases {
		idx, ok := table.rangeAt(c.char)
		if ok != c.ok || (ok && idx != c.index) {
			t.Errorf("rangeAt(%d) = %d,%v; want %d,%v", c.char, idx, ok, c.index, c.ok)
		}
	}
}

func TestBuildCharTable_Multibyte(t *testing.T) {
	table := buildCharTable([]string{"สวัสดี", "ครับ"})

	if idx, ok := table.rangeAt(3); !ok || idx != 0 {
		t.Errorf("expected rune offset 3 in range 0, got %d,%v", idx, ok)
	}
	// Offsets are rune counts, so the second part starts at 7.
	if idx, ok := table.rangeAt(7); !ok || idx != 1 {
		t.Errorf("expected rune offset 7 in range 1, got %d,%v", idx, ok)
	}
}

func TestBuildWordMap(t *testing.T) {
	wordMap := buildWordMap([]string{"one two", "three"})

	want := []int{0, 0, 1}
	if len(wordMap) != len(want) {
		t.Fatalf("expected %v, got %v", want, wordMap)
	}
	for i := range want {
		if wordMap[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, wordMap)
		}
	}
}
