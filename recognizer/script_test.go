package recognizer

import (
	"context"
	"strings"
	"testing"
	"time"
)

func collect(t *testing.T, ch <-chan Message, n int) []Message {
	t.Helper()
	var msgs []Message
	timeout := time.After(2 * time.Second)
	for len(msgs) < n {
		select {
		case m, ok := <-ch:
			if !ok {
				t.Fatalf("stream closed after %d of %d messages", len(msgs), n)
			}
			msgs = append(msgs, m)
		case <-timeout:
			t.Fatalf("timed out after %d of %d messages", len(msgs), n)
		}
	}
	return msgs
}

func TestParseScript(t *testing.T) {
	src := `
# greeting
interim hel
final hello world
batch 1 f:how are|i:you
pause 10ms
speechend
error no-speech nothing heard
`
	steps, err := ParseScript(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(steps) != 6 {
		t.Fatalf("got %d steps, want 6", len(steps))
	}
	if steps[2].event.ResultIndex != 1 || len(steps[2].event.Results) != 2 {
		t.Errorf("batch parsed as %+v", steps[2].event)
	}
	if steps[2].event.Results[1].IsFinal {
		t.Error("i: result should be interim")
	}
	if steps[3].delay != 10*time.Millisecond {
		t.Errorf("pause = %v", steps[3].delay)
	}
	if steps[5].code != CodeNoSpeech || steps[5].message != "nothing heard" {
		t.Errorf("error step = %+v", steps[5])
	}
}

func TestParseScriptErrors(t *testing.T) {
	for _, src := range []string{
		"shout hello",
		"pause soon",
		"batch x f:a",
		"batch 0 a",
		"batch 0 q:a",
		"error",
	} {
		t.Run(src, func(t *testing.T) {
			if _, err := ParseScript(strings.NewReader(src)); err == nil {
				t.Errorf("expected error for %q", src)
			}
		})
	}
}

func TestScriptReplaysEachSession(t *testing.T) {
	steps, err := ParseScript(strings.NewReader("interim hel\nfinal hello world\nspeechend\n"))
	if err != nil {
		t.Fatal(err)
	}
	eng := NewScript(DefaultConfig(), steps)

	for run := 0; run < 2; run++ {
		ch, err := eng.Start(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		msgs := collect(t, ch, 3)
		if msgs[0].Kind != MessageResult || msgs[0].Event.Results[0].IsFinal {
			t.Errorf("run %d: first message should be an interim result: %+v", run, msgs[0])
		}
		if msgs[1].Event.Results[0].Best() != "hello world" || !msgs[1].Event.Results[0].IsFinal {
			t.Errorf("run %d: second message should finalize slot 0: %+v", run, msgs[1])
		}
		if msgs[2].Kind != MessageSpeechEnd {
			t.Errorf("run %d: third message = %v, want speechend", run, msgs[2].Kind)
		}
		if err := eng.Stop(); err != nil {
			t.Fatal(err)
		}
		if _, ok := <-ch; ok {
			t.Errorf("run %d: stream should be closed after Stop", run)
		}
	}
}

func TestScriptStartTwice(t *testing.T) {
	eng := NewScript(DefaultConfig(), nil)
	if _, err := eng.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer eng.Stop()
	if _, err := eng.Start(context.Background()); err != ErrAlreadyStarted {
		t.Errorf("second Start err = %v, want ErrAlreadyStarted", err)
	}
}

func TestScriptSingleUtterance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Continuous = false
	steps, _ := ParseScript(strings.NewReader("final one\nfinal two\n"))
	eng := NewScript(cfg, steps)

	ch, err := eng.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	msgs := collect(t, ch, 2)
	if msgs[1].Kind != MessageSpeechEnd {
		t.Errorf("non-continuous engine should end speech after the first final, got %v", msgs[1].Kind)
	}
	eng.Stop()
}

func TestScriptStopDuringPause(t *testing.T) {
	steps, _ := ParseScript(strings.NewReader("pause 1h\nfinal never\n"))
	eng := NewScript(DefaultConfig(), steps)
	ch, err := eng.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		eng.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not interrupt pause")
	}
	if _, ok := <-ch; ok {
		t.Error("no messages expected after stop during pause")
	}
}
