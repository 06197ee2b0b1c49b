package session

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/nattapol/readalong/internal/document"
	"github.com/nattapol/readalong/internal/render"
	"github.com/nattapol/readalong/internal/speech"
	"github.com/nattapol/readalong/internal/styling"
	"github.com/nattapol/readalong/internal/textrange"
)

var (
	// ErrNoSelection is returned when highlighting without a selection.
	ErrNoSelection = errors.New("no selection")
	// ErrTextTooLong is returned when the document exceeds the speaking limit.
	ErrTextTooLong = errors.New("text too long")
	// ErrRangeOutOfBounds is returned for a range index outside the set.
	ErrRangeOutOfBounds = errors.New("range index out of bounds")
)

// Setters receive state the session pushes outward. The caller owns the
// content, plain text, and range set; the session never mutates caller state
// directly. Any field may be nil.
type Setters struct {
	PlainText func(string)
	Content   func(string)
	Ranges    func([]textrange.Range)
}

// Options configures a session.
type Options struct {
	TextColor     string
	TextHighlight string
	// MaxTextLength caps the document length, in runes, accepted for
	// speaking. Zero means no cap.
	MaxTextLength int
}

// Session wires an editor, the highlight range set, and the playback
// sequencer into one controller. It recomputes the plain-text projection on
// every edit, reconciles the highlights against it, and keeps the caller
// informed through setters.
type Session struct {
	mu      sync.Mutex
	editor  Editor
	seq     *speech.Sequencer
	opts    Options
	setters Setters
	logger  *slog.Logger

	html   string
	plain  string
	proj   *document.Projection
	root   document.Node
	ranges []textrange.Range
}

// New creates a session over the editor and sequencer, taking the editor's
// current content as the starting state.
func New(editor Editor, seq *speech.Sequencer, opts Options, logger *slog.Logger) *Session {
	s := &Session{
		editor: editor,
		seq:    seq,
		opts:   opts,
		logger: logger,
	}
	s.reload()
	editor.OnChange(s.handleChange)
	return s
}

// SetSetters installs the outward state callbacks.
func (s *Session) SetSetters(set Setters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setters = set
}

// PlainText returns the current plain-text projection.
func (s *Session) PlainText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plain
}

// Ranges returns the current highlight set.
func (s *Session) Ranges() []textrange.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]textrange.Range(nil), s.ranges...)
}

// ConfirmHighlight turns the editor's current selection into a highlight,
// merging it into the range set. An absent or whitespace-only selection is a
// no-op, not an error surface the caller has to handle. A selection spanning
// the whole document collapses to one full-text range.
func (s *Session) ConfirmHighlight() error {
	sel, ok := s.editor.Selection()
	if !ok || strings.TrimSpace(sel.Text) == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var start, end int
	if s.isSelectAll(sel) {
		start, end = 0, len([]rune(s.plain))
	} else {
		off := s.proj.Resolve(sel)
		start, end = off.Start, off.End
	}
	if start >= end {
		return nil
	}

	s.ranges = textrange.Merge(s.ranges, start, end)
	s.logger.Debug("highlight confirmed", "start", start, "end", end, "ranges", len(s.ranges))
	s.pushRanges()
	return nil
}

// RemoveRange deletes the exact-match highlight, stopping playback first so
// the speaking index cannot point at a vanished range.
func (s *Session) RemoveRange(r textrange.Range) {
	s.seq.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges = textrange.Remove(s.ranges, r)
	s.logger.Debug("highlight removed", "start", r.Start, "end", r.End, "ranges", len(s.ranges))
	s.pushRanges()
}

// ClearRanges drops every highlight, stopping playback first.
func (s *Session) ClearRanges() {
	s.seq.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges = nil
	s.pushRanges()
}

// SpeakAll voices every highlight in order.
func (s *Session) SpeakAll() error {
	s.mu.Lock()
	plain, ranges := s.plain, append([]textrange.Range(nil), s.ranges...)
	s.mu.Unlock()

	if err := s.checkLength(plain); err != nil {
		return err
	}
	return s.seq.SpeakAll(plain, ranges)
}

// SpeakRange voices the highlight at the given index.
func (s *Session) SpeakRange(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.ranges) {
		s.mu.Unlock()
		return ErrRangeOutOfBounds
	}
	text := s.ranges[index].Slice(s.plain)
	s.mu.Unlock()

	return s.seq.SpeakText(text)
}

// PlayClips plays per-highlight audio clips from dir, in highlight order.
func (s *Session) PlayClips(dir string) error {
	s.mu.Lock()
	ranges := append([]textrange.Range(nil), s.ranges...)
	s.mu.Unlock()

	clips, err := speech.ClipsForRanges(dir, ranges)
	if err != nil {
		return err
	}
	return s.seq.PlayClips(clips)
}

// Stop cancels playback.
func (s *Session) Stop() { s.seq.Stop() }

// Pause suspends clip playback.
func (s *Session) Pause() { s.seq.Pause() }

// Resume continues paused clip playback.
func (s *Session) Resume() { s.seq.Resume() }

// Status returns the sequencer's speaking state.
func (s *Session) Status() speech.Status { return s.seq.Status() }

// Render returns the plain text with highlights and recovered character
// styles applied, the active range marked per the speaking state.
func (s *Session) Render() string {
	s.mu.Lock()
	root, plain, ranges := s.root, s.plain, append([]textrange.Range(nil), s.ranges...)
	s.mu.Unlock()

	table := styling.BuildTable(styling.Recover(root, plain))

	status := s.seq.Status()
	speakingIndex := -1
	if status.PlayingAll && status.CurrentIndex >= 0 {
		speakingIndex = status.CurrentIndex
	} else if !status.PlayingAll && status.State != speech.StateIdle {
		speakingIndex = status.CurrentIndex
	}

	return render.ANSI(plain, ranges, table, speakingIndex, render.Options{
		TextColor:     s.opts.TextColor,
		TextHighlight: s.opts.TextHighlight,
	})
}

// handleChange re-reads the editor after an edit: the projection is
// recomputed and the highlights reconciled against the new text before
// anything is pushed outward.
func (s *Session) handleChange() {
	s.mu.Lock()
	oldPlain := s.plain
	s.mu.Unlock()

	s.reload()

	s.mu.Lock()
	s.ranges = textrange.Reconcile(oldPlain, s.plain, s.ranges)
	s.logger.Debug("content changed",
		"old_length", len(oldPlain),
		"new_length", len(s.plain),
		"ranges", len(s.ranges),
	)
	if s.setters.PlainText != nil {
		s.setters.PlainText(s.plain)
	}
	if s.setters.Content != nil {
		s.setters.Content(s.html)
	}
	s.pushRanges()
	s.mu.Unlock()
}

// reload rebuilds the projection from the editor's document tree. The tree
// is taken from the editor, not reparsed from its HTML: selections are
// anchored to the editor's nodes and the offset index is keyed by node
// identity.
func (s *Session) reload() {
	root := s.editor.Root()
	proj := document.Project(root)
	html := s.editor.Content(FormatHTML)

	s.mu.Lock()
	s.html = html
	s.root = root
	s.proj = proj
	s.plain = proj.Text
	s.mu.Unlock()
}

// isSelectAll reports whether the selection covers the whole document.
// Callers hold s.mu.
func (s *Session) isSelectAll(sel document.Selection) bool {
	have := strings.Join(strings.Fields(document.NormalizeSpace(sel.Text)), " ")
	want := strings.Join(strings.Fields(s.plain), " ")
	return want != "" && have == want
}

// pushRanges notifies the ranges setter. Callers hold s.mu.
func (s *Session) pushRanges() {
	if s.setters.Ranges != nil {
		s.setters.Ranges(append([]textrange.Range(nil), s.ranges...))
	}
}

func (s *Session) checkLength(plain string) error {
	if s.opts.MaxTextLength > 0 && len([]rune(plain)) > s.opts.MaxTextLength {
		return ErrTextTooLong
	}
	return nil
}
