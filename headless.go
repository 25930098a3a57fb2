package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"voxa/config"
	"voxa/log"
	"voxa/recognizer"
	"voxa/session"
)

// headlessSink prints session events as lines on out. It counts published
// starts and stops so WAIT returns only after the STOPPED line is out.
type headlessSink struct {
	mu      sync.Mutex
	out     io.Writer
	starts  int
	stops   int
	stopped chan struct{}
}

func newHeadlessSink(out io.Writer) *headlessSink {
	return &headlessSink{out: out, stopped: make(chan struct{}, 1)}
}

func (s *headlessSink) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *headlessSink) RecordingStart(id string) {
	s.mu.Lock()
	s.starts++
	fmt.Fprintf(s.out, "RECORDING %s\n", id)
	s.mu.Unlock()
}

func (s *headlessSink) RecordingStop(a session.Analysis) {
	s.mu.Lock()
	fmt.Fprintf(s.out, "STOPPED reason=%s words=%d distinct=%d elapsed=%d\n", a.Reason, a.Frequency.Total(), a.Frequency.Len(), a.Elapsed)
	s.stops++
	s.mu.Unlock()
	select {
	case s.stopped <- struct{}{}:
	default:
	}
}

func (s *headlessSink) RecordingTick(int) {}

func (s *headlessSink) Transcript(display string) {
	s.printf("TRANSCRIPT %s", display)
}

func (s *headlessSink) RecognitionError(err *recognizer.RecognitionError) {
	s.printf("ERROR %s %s", err.Code, err.Message)
}

func (s *headlessSink) settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops >= s.starts
}

// wait blocks until every started session has published its stop. It
// reports false when ctx ends first.
func (s *headlessSink) wait(ctx context.Context) bool {
	for !s.settled() {
		select {
		case <-s.stopped:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// runHeadless drives one controller from line commands on in:
//
//	START, STOP, WAIT, REPORT, DOWNLOAD, SLEEP <ms>, QUIT
//
// End of input behaves like QUIT.
func runHeadless(ctx context.Context, engine recognizer.Engine, cfg config.Config, in io.Reader, out io.Writer) int {
	sink := newHeadlessSink(out)
	ctrl := session.New(engine, sink, session.Options{})
	defer func() {
		stopOnExit(ctrl)
		log.AppExit(ctrl.Sessions())
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		select {
		case <-ctx.Done():
			return 0
		case l, ok := <-lines:
			if !ok {
				return 0
			}
			line = l
		}

		verb, arg, _ := strings.Cut(line, " ")
		switch strings.ToUpper(verb) {
		case "":
		case "START":
			if err := ctrl.Start(ctx); err != nil {
				sink.printf("ERROR start %v", err)
			}
		case "STOP":
			if _, err := ctrl.Stop(); err != nil {
				sink.printf("ERROR stop %v", err)
			}
		case "WAIT":
			if !sink.wait(ctx) {
				return 0
			}
		case "REPORT":
			sink.printf("REPORT\n%s\nEND", ctrl.Report())
		case "DOWNLOAD":
			path, err := ctrl.Download(cfg.OutputDir)
			if err != nil {
				sink.printf("ERROR download %v", err)
				continue
			}
			sink.printf("SAVED %s", path)
		case "SLEEP":
			ms, err := strconv.Atoi(strings.TrimSpace(arg))
			if err != nil {
				sink.printf("ERROR sleep %q", arg)
				continue
			}
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return 0
			}
		case "QUIT":
			return 0
		default:
			sink.printf("ERROR unknown command %q", verb)
		}
	}
}
