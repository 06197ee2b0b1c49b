package session

import (
	"testing"
)

func TestMemoryEditor_ContentFormats(t *testing.T) {
	e, err := NewMemoryEditor("<p>Hello</p><p>World</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := e.Content(FormatText); got != "Hello\n\nWorld" {
		t.Errorf("plain text = %q, want %q", got, "Hello\n\nWorld")
	}
	if got := e.Content(FormatHTML); got != "<p>Hello</p><p>World</p>" {
		t.Errorf("html = %q", got)
	}
}

func TestMemoryEditor_SelectText(t *testing.T) {
	e, err := NewMemoryEditor("<p>Hello</p><p>World</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !e.SelectText("World") {
		t.Fatal("expected selection to succeed")
	}

	sel, ok := e.Selection()
	if !ok {
		t.Fatal("expected a selection")
	}
	if sel.Text != "World" {
		t.Errorf("selection text = %q, want %q", sel.Text, "World")
	}
	if sel.StartNode == nil || sel.StartNode.Text() != "World" {
		t.Error("expected selection anchored in the World text node")
	}
}

func TestMemoryEditor_SelectTextMissing(t *testing.T) {
	e, err := NewMemoryEditor("<p>Hello</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.SelectText("absent") {
		t.Error("expected selection of missing text to fail")
	}
	if _, ok := e.Selection(); ok {
		t.Error("expected no selection")
	}
}

func TestMemoryEditor_SelectRangeBounds(t *testing.T) {
	e, err := NewMemoryEditor("<p>Hello</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.SelectRange(-1, 3) {
		t.Error("expected negative start to fail")
	}
	if e.SelectRange(2, 2) {
		t.Error("expected empty window to fail")
	}
	if e.SelectRange(0, 100) {
		t.Error("expected out-of-bounds end to fail")
	}
}

func TestMemoryEditor_SelectAll(t *testing.T) {
	e, err := NewMemoryEditor("<p>Hello</p><p>World</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !e.SelectAll() {
		t.Fatal("expected select-all to succeed")
	}
	sel, ok := e.Selection()
	if !ok || sel.Text != "Hello\n\nWorld" {
		t.Errorf("expected full-text selection, got %q", sel.Text)
	}
}

func TestMemoryEditor_SetContentFiresChange(t *testing.T) {
	e, err := NewMemoryEditor("<p>Hello</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fired := 0
	e.OnChange(func() { fired++ })

	if err := e.SetContent("<p>Changed</p>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fired != 1 {
		t.Errorf("expected 1 change event, got %d", fired)
	}
	if got := e.Content(FormatText); got != "Changed" {
		t.Errorf("plain text = %q, want %q", got, "Changed")
	}

	// Selection does not survive a content swap.
	e.SelectText("Changed")
	e.SetContent("<p>Again</p>")
	if _, ok := e.Selection(); ok {
		t.Error("expected selection cleared after content change")
	}
}

func TestMemoryEditor_Mentions(t *testing.T) {
	e, err := NewMemoryEditor(`<p>Hi <span data-mention-id="u1">@nat</span> and <span data-mention-id="u2">@sam</span></p>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mentions := e.Mentions()
	if len(mentions) != 2 {
		t.Fatalf("expected 2 mentions, got %d", len(mentions))
	}
	if mentions[0].ID != "u1" || mentions[0].Name != "@nat" {
		t.Errorf("first mention = %+v", mentions[0])
	}
	if mentions[1].ID != "u2" || mentions[1].Name != "@sam" {
		t.Errorf("second mention = %+v", mentions[1])
	}

	// Mention spans project as ordinary text.
	if got := e.Content(FormatText); got != "Hi @nat and @sam" {
		t.Errorf("plain text = %q, want %q", got, "Hi @nat and @sam")
	}
}
