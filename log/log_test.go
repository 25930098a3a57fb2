package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(wd, "logs"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv("VOXA_LOG_PATH", "/tmp/voxa-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/voxa-env-log" {
		t.Errorf("got %q, want /tmp/voxa-env-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv("VOXA_LOG_PATH", "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "voxa") {
		t.Errorf("default dir %q should mention voxa", got)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{DiagnosticsFile, TranscriptFile} {
		if _, err := os.Stat(filepath.Join(tmp, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestTranscriptText(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}

	TranscriptText("sess-1", "hello world")
	TranscriptText("sess-2", "")

	data, err := os.ReadFile(filepath.Join(tmp, TranscriptFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, empty transcripts should be skipped", len(lines))
	}
	fields := strings.Split(lines[0], "\t")
	if len(fields) != 4 || fields[2] != "sess-1" || fields[3] != "hello world" {
		t.Errorf("unexpected line %q", lines[0])
	}
}

func TestSessionEndWritesDiagnostics(t *testing.T) {
	tmp := setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	SessionEnd(SessionSummary{ID: "abc", Reason: "user", Words: 6, Distinct: 4})
	RecognitionError("abc", "no-speech", "quiet room")

	data, err := os.ReadFile(filepath.Join(tmp, DiagnosticsFile))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{"session_end", "session=abc", "distinct=4", "recognition_error", "code=no-speech"} {
		if !strings.Contains(out, want) {
			t.Errorf("diagnostics missing %q:\n%s", want, out)
		}
	}
}

func TestHelpersBeforeInit(t *testing.T) {
	setupLogDir(t)
	// must not panic
	Info("x")
	Warnf("y %d", 1)
	TranscriptText("s", "text")
	SessionStart("s", "fake", "en-US")
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)

	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close() // should not panic
}
