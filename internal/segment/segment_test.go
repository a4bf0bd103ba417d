package segment

import "testing"

func TestFromWords_BreaksOnPause(t *testing.T) {
	cfg := DefaultConfig()
	words := []Word{
		{Text: "hello", StartMs: 0, EndMs: 300},
		{Text: "world", StartMs: 350, EndMs: 950},
		{Text: "next", StartMs: 1500, EndMs: 1800},
	}
	cues := FromWords(words, cfg)
	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2", len(cues))
	}
	if cues[0].Text != "hello world" {
		t.Errorf("cues[0].Text = %q, want %q", cues[0].Text, "hello world")
	}
	if cues[1].Text != "next" {
		t.Errorf("cues[1].Text = %q, want %q", cues[1].Text, "next")
	}
}

func TestFromWords_Empty(t *testing.T) {
	if cues := FromWords(nil, DefaultConfig()); cues != nil {
		t.Errorf("FromWords(nil) = %v, want nil", cues)
	}
}

func TestFromText_SplitsOnSentences(t *testing.T) {
	cues := FromText("Hello there. How are you? Fine, thanks!")
	if len(cues) != 3 {
		t.Fatalf("got %d cues, want 3", len(cues))
	}
	if cues[0].StartMs != 0 {
		t.Errorf("cues[0].StartMs = %d, want 0", cues[0].StartMs)
	}
	if cues[1].StartMs != cues[0].EndMs {
		t.Errorf("cues[1].StartMs = %d, want %d (back-to-back)", cues[1].StartMs, cues[0].EndMs)
	}
}
