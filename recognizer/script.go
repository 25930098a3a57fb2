package recognizer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type stepKind int

const (
	stepInterim stepKind = iota
	stepFinal
	stepBatch
	stepPause
	stepSpeechEnd
	stepError
)

// Step is one line of a recognition script.
type Step struct {
	kind    stepKind
	text    string
	event   Event
	delay   time.Duration
	code    string
	message string
}

// ParseScript reads a recognition script. One step per line:
//
//	interim <text>
//	final <text>
//	batch <resultIndex> f:<text>|i:<text>|...
//	pause <duration>
//	speechend
//	error <code> [message]
//
// Blank lines and lines starting with # are ignored.
func ParseScript(r io.Reader) ([]Step, error) {
	var steps []Step
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		var st Step
		switch strings.ToLower(verb) {
		case "interim":
			st = Step{kind: stepInterim, text: rest}
		case "final":
			st = Step{kind: stepFinal, text: rest}
		case "batch":
			ev, err := parseBatch(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			st = Step{kind: stepBatch, event: ev}
		case "pause":
			d, err := time.ParseDuration(rest)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			st = Step{kind: stepPause, delay: d}
		case "speechend":
			st = Step{kind: stepSpeechEnd}
		case "error":
			code, msg, _ := strings.Cut(rest, " ")
			if code == "" {
				return nil, fmt.Errorf("line %d: error step needs a code", lineNo)
			}
			st = Step{kind: stepError, code: code, message: strings.TrimSpace(msg)}
		default:
			return nil, fmt.Errorf("line %d: unknown step %q", lineNo, verb)
		}
		steps = append(steps, st)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

func parseBatch(s string) (Event, error) {
	idxStr, body, _ := strings.Cut(s, " ")
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 {
		return Event{}, fmt.Errorf("batch needs a non-negative result index, got %q", idxStr)
	}
	ev := Event{ResultIndex: idx}
	if strings.TrimSpace(body) == "" {
		return ev, nil
	}
	for _, part := range strings.Split(body, "|") {
		tag, text, ok := strings.Cut(part, ":")
		if !ok {
			return Event{}, fmt.Errorf("batch result %q needs f: or i: prefix", part)
		}
		var final bool
		switch strings.TrimSpace(tag) {
		case "f":
			final = true
		case "i":
		default:
			return Event{}, fmt.Errorf("batch result %q needs f: or i: prefix", part)
		}
		ev.Results = append(ev.Results, Result{
			Alternatives: []Alternative{{Transcript: text}},
			IsFinal:      final,
		})
	}
	return ev, nil
}

func LoadScript(path string) ([]Step, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	steps, err := ParseScript(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return steps, nil
}

// Script replays a fixed list of steps each session. After the last step it
// stays open, like a quiet microphone, until stopped.
type Script struct {
	cfg   Config
	steps []Step

	mu   sync.Mutex
	out  chan Message
	stop chan struct{}
	done chan struct{}
}

func NewScript(cfg Config, steps []Step) *Script {
	return &Script{cfg: cfg, steps: steps}
}

func (s *Script) Name() string { return "script" }

func (s *Script) Config() Config { return s.cfg }

func (s *Script) Start(ctx context.Context) (<-chan Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil, ErrAlreadyStarted
	}
	// one slot per step, so playback never blocks on a slow reader
	s.out = make(chan Message, len(s.steps)+1)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.play(ctx, s.out, s.stop, s.done)
	return s.out, nil
}

func (s *Script) play(ctx context.Context, out chan<- Message, stop, done chan struct{}) {
	defer close(done)
	window := newResultWindow(s.cfg.InterimResults)
	ended := false
	for _, st := range s.steps {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		switch st.kind {
		case stepInterim, stepFinal:
			final := st.kind == stepFinal
			if ev, ok := window.update(st.text, 1, final); ok {
				out <- ResultMessage(ev)
			}
			if final && st.text != "" && !s.cfg.Continuous && !ended {
				ended = true
				out <- SpeechEndMessage()
			}
		case stepBatch:
			out <- ResultMessage(st.event)
		case stepPause:
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-time.After(st.delay):
			}
		case stepSpeechEnd:
			if !ended {
				ended = true
				out <- SpeechEndMessage()
			}
		case stepError:
			out <- ErrorMessage(st.code, st.message)
		}
	}
}

func (s *Script) Stop() error {
	s.mu.Lock()
	out, stop, done := s.out, s.stop, s.done
	s.out, s.stop, s.done = nil, nil, nil
	s.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	close(out)
	return nil
}
