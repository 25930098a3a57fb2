// Package transcript turns a stream of recognition events into the running
// transcript of one recording session.
package transcript

import (
	"strings"

	"voxa/recognizer"
)

// State is a snapshot of the transcript.
type State struct {
	// Final holds confirmed results only, each followed by one space.
	Final string
	// Display is Final plus the provisional text of the latest event.
	Display string
}

// Accumulator is not safe for concurrent use; the session owns it from a
// single goroutine.
type Accumulator struct {
	final   strings.Builder
	display string
	events  int
}

func New() *Accumulator {
	return &Accumulator{}
}

// Reset empties the transcript for a new session.
func (a *Accumulator) Reset() {
	a.final.Reset()
	a.display = ""
	a.events = 0
}

// Apply folds one event into the transcript. Results before ResultIndex were
// already seen and are skipped. Final text is only ever appended; interim
// text lives until the next event.
func (a *Accumulator) Apply(ev recognizer.Event) State {
	var interim strings.Builder
	start := max(ev.ResultIndex, 0)
	for i := start; i < len(ev.Results); i++ {
		r := ev.Results[i]
		if r.IsFinal {
			a.final.WriteString(r.Best())
			a.final.WriteByte(' ')
		} else {
			interim.WriteString(r.Best())
		}
	}
	a.display = a.final.String() + interim.String()
	a.events++
	return a.State()
}

func (a *Accumulator) State() State {
	return State{Final: a.final.String(), Display: a.display}
}

func (a *Accumulator) Final() string { return a.final.String() }

func (a *Accumulator) Display() string { return a.display }

// Events reports how many events were applied since the last Reset.
func (a *Accumulator) Events() int { return a.events }
