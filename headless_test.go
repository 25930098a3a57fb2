package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"voxa/config"
	"voxa/recognizer"
	"voxa/report"
	"voxa/session"
)

func scriptEngine(t *testing.T, script string) *recognizer.Script {
	t.Helper()
	steps, err := recognizer.ParseScript(strings.NewReader(script))
	if err != nil {
		t.Fatal(err)
	}
	return recognizer.NewScript(recognizer.DefaultConfig(), steps)
}

func headlessConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.Engine = config.EngineScript
	cfg.OutputDir = t.TempDir()
	return cfg
}

func TestHeadlessSpeechEndSession(t *testing.T) {
	eng := scriptEngine(t, `
interim hel
final hello world
final hello again
speechend
`)
	cfg := headlessConfig(t)
	var out bytes.Buffer
	code := runHeadless(context.Background(), eng, cfg,
		strings.NewReader("START\nWAIT\nREPORT\nDOWNLOAD\nQUIT\n"), &out)
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}

	got := out.String()
	for _, want := range []string{
		"RECORDING ",
		"TRANSCRIPT hel\n",
		"TRANSCRIPT hello world hello again \n",
		"STOPPED reason=speechend words=4 distinct=3",
		"hello: 2\nworld: 1\nagain: 1\nEND",
		"SAVED ",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, report.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Transcript:\nhello world hello again\n\nWord Frequency:\n") {
		t.Errorf("report file = %q", data)
	}
}

func TestHeadlessManualStop(t *testing.T) {
	eng := scriptEngine(t, "final one two\npause 10s\nfinal never\n")
	var out bytes.Buffer
	code := runHeadless(context.Background(), eng, headlessConfig(t),
		strings.NewReader("START\nSLEEP 50\nSTOP\nWAIT\nREPORT\n"), &out)
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	got := out.String()
	if !strings.Contains(got, "STOPPED reason=user words=2 distinct=2") {
		t.Errorf("missing manual stop:\n%s", got)
	}
	if strings.Contains(got, "never") {
		t.Errorf("script kept playing after stop:\n%s", got)
	}
	if !strings.Contains(got, "one: 1\ntwo: 1\nEND") {
		t.Errorf("report missing counts:\n%s", got)
	}
}

func TestHeadlessErrorsAndIdleCommands(t *testing.T) {
	eng := scriptEngine(t, "error not-allowed microphone blocked\n")
	var out bytes.Buffer
	code := runHeadless(context.Background(), eng, headlessConfig(t),
		strings.NewReader("WAIT\nSTOP\nSTART\nWAIT\nBOGUS\nSLEEP x\n"), &out)
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	got := out.String()
	for _, want := range []string{
		"ERROR not-allowed microphone blocked",
		"STOPPED reason=error words=0 distinct=0",
		`ERROR unknown command "BOGUS"`,
		`ERROR sleep "x"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "STOPPED") != 1 {
		t.Errorf("idle STOP should not publish a stop:\n%s", got)
	}
}

func TestHeadlessWaitForPublishedStop(t *testing.T) {
	var out bytes.Buffer
	sink := newHeadlessSink(&out)
	sink.RecordingStart("s1")

	// the controller is already idle but the stop line is still in flight
	go func() {
		time.Sleep(30 * time.Millisecond)
		sink.RecordingStop(session.Analysis{Reason: session.StopSpeechEnd})
	}()
	if !sink.wait(context.Background()) {
		t.Fatal("wait gave up")
	}
	sink.printf("REPORT")

	got := out.String()
	stopAt, reportAt := strings.Index(got, "STOPPED"), strings.Index(got, "REPORT")
	if stopAt < 0 || reportAt < stopAt {
		t.Errorf("REPORT printed before STOPPED:\n%s", got)
	}

	// nothing outstanding: wait returns at once
	if !sink.wait(context.Background()) {
		t.Error("wait blocked with no session running")
	}

	sink.RecordingStart("s2")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sink.wait(ctx) {
		t.Error("wait reported a stop that never happened")
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cli := &CLI{Engine: "script", Script: "s.txt", Lang: "de-DE", NoBeep: true}
	applyFlags(&cfg, cli)
	if cfg.Engine != "script" || cfg.Script != "s.txt" || cfg.Language != "de-DE" {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Beep {
		t.Error("--no-beep ignored")
	}
	if cfg.OutputDir != "." {
		t.Errorf("empty flag overrode OutputDir: %q", cfg.OutputDir)
	}
}
