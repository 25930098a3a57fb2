// Package session drives one recording at a time: it owns the speech engine,
// folds its results into the transcript, and derives the word-frequency
// analysis when recording stops.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"voxa/frequency"
	"voxa/log"
	"voxa/recognizer"
	"voxa/report"
	"voxa/transcript"
)

var ErrAlreadyRecording = errors.New("already recording")

const DefaultTickInterval = time.Second

// StopReason says what ended a session.
type StopReason string

const (
	StopUser      StopReason = "user"
	StopSpeechEnd StopReason = "speechend"
	StopError     StopReason = "error"
	StopClosed    StopReason = "closed"
)

// Analysis is the frozen result of one session.
type Analysis struct {
	SessionID string
	Final     string
	Frequency frequency.Map
	Elapsed   int
	Reason    StopReason
	Err       *recognizer.RecognitionError
}

// Snapshot is the controller state for display.
type Snapshot struct {
	Recording bool
	SessionID string
	Elapsed   int
	Display   string
	Final     string
	Analysis  Analysis
}

type Options struct {
	// TickInterval is one unit of the elapsed counter. Zero means one second.
	TickInterval time.Duration
}

// Controller is safe for concurrent use. Start and Stop are serialized;
// engine results are applied by a single pump goroutine per session.
type Controller struct {
	engine recognizer.Engine
	sink   EventSink
	tick   time.Duration

	opMu sync.Mutex

	mu        sync.Mutex
	acc       *transcript.Accumulator
	recording bool
	gen       uint64
	sessionID string
	elapsed   int
	lastErr   *recognizer.RecognitionError
	analysis  Analysis
	sessions  int

	tickCancel context.CancelFunc
	tickDone   chan struct{}
	pumpDone   chan struct{}
}

func New(engine recognizer.Engine, sink EventSink, opts Options) *Controller {
	if sink == nil {
		sink = NopSink{}
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return &Controller{
		engine: engine,
		sink:   sink,
		tick:   tick,
		acc:    transcript.New(),
	}
}

func (c *Controller) Engine() recognizer.Engine { return c.engine }

// Start begins a new session. The transcript and analysis are reset only
// once the engine has started; a failed start leaves them untouched.
func (c *Controller) Start(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.recording {
		c.mu.Unlock()
		return ErrAlreadyRecording
	}
	c.mu.Unlock()

	ch, err := c.engine.Start(ctx)
	if err != nil {
		log.Errorf("engine start error: %v", err)
		return fmt.Errorf("start %s: %w", c.engine.Name(), err)
	}

	id := uuid.NewString()
	tickCtx, cancel := context.WithCancel(context.Background())

	// the previous session stays visible until the engine is up
	c.mu.Lock()
	c.acc.Reset()
	c.analysis = Analysis{}
	c.elapsed = 0
	c.lastErr = nil
	c.gen++
	gen := c.gen
	c.recording = true
	c.sessionID = id
	c.sessions++
	c.tickCancel = cancel
	c.tickDone = make(chan struct{})
	c.pumpDone = make(chan struct{})
	tickDone, pumpDone := c.tickDone, c.pumpDone
	c.mu.Unlock()

	log.SessionStart(id, c.engine.Name(), c.engine.Config().Language)
	c.sink.RecordingStart(id)

	go c.runTicker(tickCtx, tickDone)
	go c.pump(gen, ch, pumpDone)
	return nil
}

// Stop ends the current session and returns its analysis. Stopping while
// idle returns the previous analysis.
func (c *Controller) Stop() (Analysis, error) {
	return c.stop(0, StopUser)
}

// Toggle starts when idle and stops when recording.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.Recording() {
		_, err := c.Stop()
		return err
	}
	return c.Start(ctx)
}

// stop ends session gen, or whichever session is running when gen is 0.
func (c *Controller) stop(gen uint64, reason StopReason) (Analysis, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if !c.recording || (gen != 0 && gen != c.gen) {
		a := c.analysis
		c.mu.Unlock()
		return a, nil
	}
	cancel, tickDone, pumpDone := c.tickCancel, c.tickDone, c.pumpDone
	c.mu.Unlock()

	// the engine flushes pending finals and closes the stream
	stopErr := c.engine.Stop()
	if stopErr != nil {
		log.Warnf("engine stop error: %v", stopErr)
	}

	cancel()
	<-tickDone
	<-pumpDone

	c.mu.Lock()
	final := c.acc.Final()
	a := Analysis{
		SessionID: c.sessionID,
		Final:     final,
		Frequency: frequency.Count(final),
		Elapsed:   c.elapsed,
		Reason:    reason,
		Err:       c.lastErr,
	}
	events := c.acc.Events()
	c.analysis = a
	c.recording = false
	c.tickCancel = nil
	c.mu.Unlock()

	log.SessionEnd(log.SessionSummary{
		ID:       a.SessionID,
		Reason:   string(reason),
		Elapsed:  a.Elapsed,
		Events:   events,
		Words:    a.Frequency.Total(),
		Distinct: a.Frequency.Len(),
	})
	log.TranscriptText(a.SessionID, final)
	c.sink.RecordingStop(a)

	if stopErr != nil {
		return a, fmt.Errorf("stop %s: %w", c.engine.Name(), stopErr)
	}
	return a, nil
}

func (c *Controller) runTicker(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.elapsed++
			elapsed := c.elapsed
			c.mu.Unlock()
			c.sink.RecordingTick(elapsed)
		}
	}
}

// pump applies engine messages in order until the engine closes the stream.
// Speech end, an error, or an unexpected close stop the session once.
func (c *Controller) pump(gen uint64, ch <-chan recognizer.Message, done chan struct{}) {
	defer close(done)
	autoStopped := false
	autoStop := func(reason StopReason) {
		if autoStopped {
			return
		}
		autoStopped = true
		go c.stop(gen, reason)
	}

	for m := range ch {
		switch m.Kind {
		case recognizer.MessageResult:
			c.mu.Lock()
			st := c.acc.Apply(m.Event)
			c.mu.Unlock()
			c.sink.Transcript(st.Display)
		case recognizer.MessageSpeechEnd:
			autoStop(StopSpeechEnd)
		case recognizer.MessageError:
			c.mu.Lock()
			id := c.sessionID
			if c.lastErr == nil {
				c.lastErr = m.Err
			}
			c.mu.Unlock()
			log.RecognitionError(id, m.Err.Code, m.Err.Message)
			c.sink.RecognitionError(m.Err)
			autoStop(StopError)
		}
	}
	autoStop(StopClosed)
}

func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Recording: c.recording,
		SessionID: c.sessionID,
		Elapsed:   c.elapsed,
		Display:   c.acc.Display(),
		Final:     c.acc.Final(),
		Analysis:  c.analysis,
	}
}

// Report renders the current transcript and the last analysis. While
// recording the frequency section is empty.
func (c *Controller) Report() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return report.Build(c.acc.Final(), c.analysis.Frequency)
}

// Download writes the report into dir, replacing any earlier one.
func (c *Controller) Download(dir string) (string, error) {
	path, err := report.Write(dir, c.Report())
	if err != nil {
		log.Errorf("report write error: %v", err)
		return "", err
	}
	log.Info("report_written: " + path)
	return path, nil
}

// Sessions counts sessions started since the controller was created.
func (c *Controller) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions
}
