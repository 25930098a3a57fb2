package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/coder/websocket"
)

const deepgramStreamURL = "wss://api.deepgram.com/v1/listen"

type streamConfig struct {
	Endpoint       string
	APIKey         string
	SampleRate     int
	Channels       int
	Language       string
	Model          string
	UtteranceEndMs int
}

type updateKind int

const (
	updateResults updateKind = iota
	updateUtteranceEnd
	updateSpeechStarted
	updateMetadata
)

type streamUpdate struct {
	Kind         updateKind
	Transcript   string
	Confidence   float64
	IsFinal      bool
	SpeechFinal  bool
	FromFinalize bool
}

type rawStream interface {
	Send(pcm []byte) error
	CloseSend() error
	Recv() (streamUpdate, error)
	Close() error
}

type deepgramStreamResponse struct {
	Type         string `json:"type"`
	IsFinal      bool   `json:"is_final"`
	SpeechFinal  bool   `json:"speech_final"`
	FromFinalize bool   `json:"from_finalize"`
	Channel      struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func streamURL(cfg streamConfig) (string, error) {
	base := cfg.Endpoint
	if base == "" {
		base = deepgramStreamURL
	}
	endpoint, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	q := endpoint.Query()
	model := cfg.Model
	if model == "" {
		model = "nova-3"
	}
	q.Set("model", model)
	q.Set("encoding", "linear16")
	if cfg.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	}
	if cfg.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Channels))
	}
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	// Interim results are always requested; the result window drops them
	// when the engine is configured without interims.
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	if cfg.UtteranceEndMs > 0 {
		q.Set("utterance_end_ms", strconv.Itoa(cfg.UtteranceEndMs))
		q.Set("vad_events", "true")
	}
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

type deepgramStream struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

func dialDeepgram(ctx context.Context, cfg streamConfig) (rawStream, error) {
	endpoint, err := streamURL(cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+cfg.APIKey)

	streamCtx, cancel := context.WithCancel(ctx)
	conn, resp, err := websocket.Dial(streamCtx, endpoint, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		cancel()
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, &RecognitionError{Code: CodeNotAllowed, Message: fmt.Sprintf("deepgram rejected credentials (%d)", resp.StatusCode)}
		}
		return nil, &RecognitionError{Code: CodeNetwork, Message: err.Error()}
	}
	conn.SetReadLimit(1 << 20)

	return &deepgramStream{conn: conn, ctx: streamCtx, cancel: cancel}, nil
}

func (s *deepgramStream) Send(pcm []byte) error {
	return s.conn.Write(s.ctx, websocket.MessageBinary, pcm)
}

func (s *deepgramStream) CloseSend() error {
	return s.conn.Write(s.ctx, websocket.MessageText, []byte(`{"type":"Finalize"}`))
}

func (s *deepgramStream) Recv() (streamUpdate, error) {
	_, data, err := s.conn.Read(s.ctx)
	if err != nil {
		return streamUpdate{}, err
	}
	return parseStreamMessage(data)
}

func (s *deepgramStream) Close() error {
	s.cancel()
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

func parseStreamMessage(data []byte) (streamUpdate, error) {
	var resp deepgramStreamResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return streamUpdate{}, fmt.Errorf("decode stream message: %w", err)
	}

	switch resp.Type {
	case "UtteranceEnd":
		return streamUpdate{Kind: updateUtteranceEnd}, nil
	case "SpeechStarted":
		return streamUpdate{Kind: updateSpeechStarted}, nil
	case "Results", "":
	default:
		return streamUpdate{Kind: updateMetadata}, nil
	}

	u := streamUpdate{
		Kind:         updateResults,
		IsFinal:      resp.IsFinal,
		SpeechFinal:  resp.SpeechFinal,
		FromFinalize: resp.FromFinalize,
	}
	if len(resp.Channel.Alternatives) > 0 {
		u.Transcript = strings.TrimSpace(resp.Channel.Alternatives[0].Transcript)
		u.Confidence = resp.Channel.Alternatives[0].Confidence
	}
	return u, nil
}
