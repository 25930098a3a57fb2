package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"voxa/config"
	"voxa/frequency"
	"voxa/recognizer"
	"voxa/session"
)

func newTestModel(t *testing.T) (tuiModel, *session.Controller) {
	t.Helper()
	eng := recognizer.NewFake(recognizer.DefaultConfig())
	ctrl := session.New(eng, session.NopSink{}, session.Options{TickInterval: time.Hour})
	t.Cleanup(func() { ctrl.Stop() })
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	return newTUIModel(context.Background(), ctrl, cfg, false), ctrl
}

func update(m tuiModel, msg tea.Msg) (tuiModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(tuiModel), cmd
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewPlaceholders(t *testing.T) {
	m, _ := newTestModel(t)
	v := m.View()
	for _, want := range []string{noTranscriptText, noWordsText, "Time: 0s", "○ READY", "[fake | en-US]"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
}

func TestSessionMessages(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(m, RecordingStartMsg{SessionID: "abc"})
	m, _ = update(m, TranscriptMsg{Text: "the cat the "})
	m, _ = update(m, RecordingTickMsg{Elapsed: 3})

	v := m.View()
	for _, want := range []string{"● REC", "Time: 3s", "the cat the", noWordsText} {
		if !strings.Contains(v, want) {
			t.Errorf("recording view missing %q:\n%s", want, v)
		}
	}

	m, _ = update(m, RecordingStopMsg{Analysis: session.Analysis{
		Final:     "the cat the ",
		Frequency: frequency.Count("the cat the "),
	}})
	v = m.View()
	if !strings.Contains(v, "the: 2") || !strings.Contains(v, "cat: 1") {
		t.Errorf("stopped view missing counts:\n%s", v)
	}
	if strings.Index(v, "the: 2") > strings.Index(v, "cat: 1") {
		t.Error("frequency lines out of first-occurrence order")
	}
	if !strings.Contains(v, "Time: 3s") {
		t.Error("elapsed reset on stop")
	}

	// a new session clears transcript and analysis
	m, _ = update(m, RecordingStartMsg{SessionID: "def"})
	v = m.View()
	if !strings.Contains(v, noTranscriptText) || !strings.Contains(v, noWordsText) {
		t.Errorf("new session did not reset view:\n%s", v)
	}
}

func TestKeysDriveController(t *testing.T) {
	m, ctrl := newTestModel(t)

	m, cmd := update(m, key("s"))
	if cmd == nil {
		t.Fatal("s produced no command")
	}
	if msg := cmd(); msg != nil {
		t.Fatalf("start cmd = %#v", msg)
	}
	if !ctrl.Recording() {
		t.Fatal("controller not recording after s")
	}

	// while the start is pending further starts are ignored
	if _, cmd := update(m, key("s")); cmd != nil {
		t.Error("second s while pending produced a command")
	}

	m, _ = update(m, RecordingStartMsg{})
	m, cmd = update(m, key("x"))
	if cmd == nil {
		t.Fatal("x produced no command")
	}
	cmd()
	if ctrl.Recording() {
		t.Fatal("controller still recording after x")
	}
	m, _ = update(m, RecordingStopMsg{})

	m, cmd = update(m, key(" "))
	if cmd == nil {
		t.Fatal("space produced no command")
	}
	cmd()
	if !ctrl.Recording() {
		t.Error("space did not toggle recording on")
	}
}

func TestDownloadKey(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := update(m, key("d"))
	msg := cmd()
	saved, ok := msg.(reportSavedMsg)
	if !ok {
		t.Fatalf("download msg = %#v", msg)
	}
	m, _ = update(m, saved)
	if !strings.Contains(m.View(), "Report saved to "+saved.Path) {
		t.Error("saved path not shown")
	}
}

func TestErrorsShownInStatus(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(m, RecognitionErrorMsg{Err: &recognizer.RecognitionError{Code: recognizer.CodeNoSpeech}})
	if !strings.Contains(m.View(), "speech recognition error: no-speech") {
		t.Errorf("error not shown:\n%s", m.View())
	}

	m.pending = true
	m, _ = update(m, cmdErrMsg{Err: errors.New("dial failed")})
	if m.pending {
		t.Error("pending not cleared by command error")
	}
	if !strings.Contains(m.View(), "dial failed") {
		t.Error("command error not shown")
	}
}

func TestFrequencyTruncatedToHeight(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 16})
	m, _ = update(m, RecordingStopMsg{Analysis: session.Analysis{
		Frequency: frequency.Count("a b c d e f g h i j k l m n o p q r s t"),
	}})
	v := m.View()
	if !strings.Contains(v, "more (press d to save the full report)") {
		t.Errorf("long table not truncated:\n%s", v)
	}
	if strings.Contains(v, "t: 1") {
		t.Error("last entry should be hidden")
	}
}

func TestFirstRunHint(t *testing.T) {
	m, _ := newTestModel(t)
	m.showHint = true
	if !strings.Contains(m.View(), "Welcome!") {
		t.Fatal("hint not shown on first run")
	}
	m, _ = update(m, key("z"))
	if strings.Contains(m.View(), "Welcome!") {
		t.Error("hint still shown after a key press")
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{"the quick brown fox jumps", 10, []string{"the quick", "brown fox", "jumps"}},
		{"héllo wörld ñandú", 6, []string{"héllo", "wörld", "ñandú"}},
		{"ääääääää", 3, []string{"äää", "äää", "ää"}},
		{"", 5, []string{""}},
	}
	for _, tt := range tests {
		got := wrapText(tt.text, tt.width)
		if len(got) != len(tt.want) {
			t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("wrapText(%q, %d) line %d = %q, want %q", tt.text, tt.width, i, got[i], tt.want[i])
			}
			if !utf8.ValidString(got[i]) {
				t.Errorf("wrapText(%q, %d) line %d is not valid UTF-8", tt.text, tt.width, i)
			}
		}
	}
}
