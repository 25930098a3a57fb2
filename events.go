package main

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"voxa/beep"
	"voxa/recognizer"
	"voxa/session"
)

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

// tuiSend forwards msg to the running program, if any.
func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// tuiSink publishes session events into the Bubble Tea loop.
type tuiSink struct{}

func (tuiSink) RecordingStart(id string) {
	beep.PlayStart()
	tuiSend(RecordingStartMsg{SessionID: id})
}

func (tuiSink) RecordingStop(a session.Analysis) {
	beep.PlayEnd()
	tuiSend(RecordingStopMsg{Analysis: a})
}

func (tuiSink) RecordingTick(elapsed int) {
	tuiSend(RecordingTickMsg{Elapsed: elapsed})
}

func (tuiSink) Transcript(display string) {
	tuiSend(TranscriptMsg{Text: display})
}

func (tuiSink) RecognitionError(err *recognizer.RecognitionError) {
	beep.PlayError()
	tuiSend(RecognitionErrorMsg{Err: err})
}
