package recognizer

import (
	"context"
	"sync"
)

// Fake is a hand-driven engine for tests.
type Fake struct {
	cfg      Config
	StartErr error

	mu      sync.Mutex
	ch      chan Message
	onStop  []Message
	starts  int
	stops   int
	stopped chan struct{}
}

func NewFake(cfg Config) *Fake {
	return &Fake{cfg: cfg}
}

func (f *Fake) Name() string   { return "fake" }
func (f *Fake) Config() Config { return f.cfg }

func (f *Fake) Start(_ context.Context) (<-chan Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return nil, f.StartErr
	}
	if f.ch != nil {
		return nil, ErrAlreadyStarted
	}
	f.starts++
	f.ch = make(chan Message, 64)
	return f.ch, nil
}

// Push delivers a message to the running session. It reports false when
// no session is running.
func (f *Fake) Push(m Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ch == nil {
		return false
	}
	f.ch <- m
	return true
}

// FlushOnStop queues messages that Stop delivers before closing the stream,
// the way a real engine flushes pending finals.
func (f *Fake) FlushOnStop(msgs ...Message) {
	f.mu.Lock()
	f.onStop = append(f.onStop, msgs...)
	f.mu.Unlock()
}

func (f *Fake) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ch == nil {
		return nil
	}
	f.stops++
	for _, m := range f.onStop {
		f.ch <- m
	}
	f.onStop = nil
	close(f.ch)
	f.ch = nil
	return nil
}

func (f *Fake) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *Fake) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}
