package session

import "voxa/recognizer"

// EventSink abstracts the display layer so both the Bubble Tea TUI
// and the headless driver receive the same session events.
type EventSink interface {
	RecordingStart(sessionID string)
	RecordingStop(a Analysis)
	RecordingTick(elapsed int)
	Transcript(display string)
	RecognitionError(err *recognizer.RecognitionError)
}

type NopSink struct{}

func (NopSink) RecordingStart(string)                          {}
func (NopSink) RecordingStop(Analysis)                         {}
func (NopSink) RecordingTick(int)                              {}
func (NopSink) Transcript(string)                              {}
func (NopSink) RecognitionError(*recognizer.RecognitionError) {}
