package recognizer

import (
	"context"
	"fmt"
)

// Config mirrors the knobs of a continuous-dictation engine.
type Config struct {
	Continuous     bool
	InterimResults bool
	Language       string
}

func DefaultConfig() Config {
	return Config{Continuous: true, InterimResults: true, Language: "en-US"}
}

type Alternative struct {
	Transcript string
	Confidence float64
}

// Result is one recognized segment. Only the first alternative is used.
type Result struct {
	Alternatives []Alternative
	IsFinal      bool
}

func (r Result) Best() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0].Transcript
}

// Event is a batch of result updates. Engines may re-deliver a window of
// recent results; only Results[ResultIndex:] are new or changed.
type Event struct {
	ResultIndex int
	Results     []Result
}

type MessageKind int

const (
	MessageResult MessageKind = iota
	MessageSpeechEnd
	MessageError
)

func (k MessageKind) String() string {
	switch k {
	case MessageResult:
		return "result"
	case MessageSpeechEnd:
		return "speechend"
	case MessageError:
		return "error"
	}
	return fmt.Sprintf("MessageKind(%d)", int(k))
}

type Message struct {
	Kind  MessageKind
	Event Event
	Err   *RecognitionError
}

func ResultMessage(ev Event) Message { return Message{Kind: MessageResult, Event: ev} }

func SpeechEndMessage() Message { return Message{Kind: MessageSpeechEnd} }

func ErrorMessage(code, msg string) Message {
	return Message{Kind: MessageError, Err: &RecognitionError{Code: code, Message: msg}}
}

// Error codes reported by engines.
const (
	CodeNoSpeech     = "no-speech"
	CodeAudioCapture = "audio-capture"
	CodeNotAllowed   = "not-allowed"
	CodeNetwork      = "network"
	CodeAborted      = "aborted"
)

// RecognitionError is a non-fatal engine failure. The session that saw it
// ends; the application keeps running.
type RecognitionError struct {
	Code    string
	Message string
}

func (e *RecognitionError) Error() string {
	if e.Message == "" {
		return "speech recognition error: " + e.Code
	}
	return fmt.Sprintf("speech recognition error: %s: %s", e.Code, e.Message)
}

// Engine is a speech-to-text capability. Start returns a per-session message
// channel; the engine closes it after Stop has flushed pending results, or
// when the engine ends the session on its own.
type Engine interface {
	Name() string
	Config() Config
	Start(ctx context.Context) (<-chan Message, error)
	Stop() error
}
