package recognizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voxa/audio"
	"voxa/log"
)

const (
	streamChunkMs      = 200
	streamChunkBytes   = audio.BytesPerSec * streamChunkMs / 1000
	streamFinalizeIdle = 200 * time.Millisecond
	streamFinalizeMax  = 1000 * time.Millisecond
	streamDrainMax     = 2 * time.Second
	watchdogInterval   = 100 * time.Millisecond

	DefaultUtteranceEndMs  = 1000
	DefaultNoSpeechTimeout = 8 * time.Second
)

var ErrAlreadyStarted = errors.New("recognizer already started")

type DeepgramOptions struct {
	APIKey   string
	Model    string
	Endpoint string
	// UtteranceEndMs is the silence gap that ends speech. Zero disables
	// engine-driven speech end.
	UtteranceEndMs int
	// NoSpeechTimeout reports CodeNoSpeech when nothing was recognized this
	// long after start. Zero disables the check.
	NoSpeechTimeout time.Duration
	Capture         audio.CaptureDevice
}

// Deepgram streams microphone PCM to Deepgram's live endpoint.
type Deepgram struct {
	cfg  Config
	opts DeepgramOptions
	dial func(ctx context.Context, cfg streamConfig) (rawStream, error)

	mu     sync.Mutex
	active *deepgramSession
	vad    *audio.VAD
}

func NewDeepgram(cfg Config, opts DeepgramOptions) *Deepgram {
	return &Deepgram{cfg: cfg, opts: opts, dial: dialDeepgram}
}

func (d *Deepgram) Name() string { return "deepgram" }

func (d *Deepgram) Config() Config { return d.cfg }

func (d *Deepgram) Start(ctx context.Context) (<-chan Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != nil {
		return nil, ErrAlreadyStarted
	}
	if d.opts.Capture == nil {
		return nil, &RecognitionError{Code: CodeAudioCapture, Message: "no capture device"}
	}

	ws, err := d.dial(ctx, streamConfig{
		Endpoint:       d.opts.Endpoint,
		APIKey:         d.opts.APIKey,
		SampleRate:     audio.SampleRate,
		Channels:       audio.Channels,
		Language:       d.cfg.Language,
		Model:          d.opts.Model,
		UtteranceEndMs: d.opts.UtteranceEndMs,
	})
	if err != nil {
		return nil, err
	}

	s := newDeepgramSession(d.cfg, d.opts, ws, d.sessionVAD())
	if err := s.start(); err != nil {
		ws.Close()
		return nil, err
	}
	d.active = s
	return s.out, nil
}

// sessionVAD returns the engine's voice detector cleared for a new session,
// or nil when detection is unavailable. Callers hold d.mu.
func (d *Deepgram) sessionVAD() *audio.VAD {
	if d.vad != nil {
		d.vad.Reset()
		return d.vad
	}
	v, err := audio.NewVAD()
	if err != nil {
		log.Warnf("voice activity detection unavailable: %v", err)
		return nil
	}
	d.vad = v
	return v
}

func (d *Deepgram) Stop() error {
	d.mu.Lock()
	s := d.active
	d.active = nil
	d.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.close()
}

type deepgramSession struct {
	cfg     Config
	opts    DeepgramOptions
	ws      rawStream
	capture audio.CaptureDevice
	vad     *audio.VAD
	window  *resultWindow

	out       chan Message
	outMu     sync.Mutex
	outClosed bool

	audioCh       chan []byte
	sendDone      chan struct{}
	recvDone      chan struct{}
	finalized     chan struct{}
	finalizedOnce sync.Once
	watchStop     chan struct{}
	watchDone     chan struct{}

	feedMu  sync.Mutex
	feedBuf []byte
	fed     bool // audioCh closed

	mu        sync.Mutex
	startedAt time.Time
	heard     bool
	ended     bool // speech end already reported
	closing   bool
	stats     streamStats
}

type streamStats struct {
	SentChunks    int
	SentBytes     uint64
	RecvMessages  int
	RecvFinal     int
	RecvInterim   int
	DroppedChunks int
}

func newDeepgramSession(cfg Config, opts DeepgramOptions, ws rawStream, vad *audio.VAD) *deepgramSession {
	return &deepgramSession{
		cfg:       cfg,
		opts:      opts,
		ws:        ws,
		capture:   opts.Capture,
		vad:       vad,
		window:    newResultWindow(cfg.InterimResults),
		out:       make(chan Message, 64),
		audioCh:   make(chan []byte, 128),
		sendDone:  make(chan struct{}),
		recvDone:  make(chan struct{}),
		finalized: make(chan struct{}),
		watchStop: make(chan struct{}),
		watchDone: make(chan struct{}),
	}
}

func (s *deepgramSession) start() error {
	s.startedAt = time.Now()
	s.capture.SetCallback(func(data []byte, _ uint32) {
		if len(data) == 0 {
			return
		}
		pcm := make([]byte, len(data))
		copy(pcm, data)
		s.feed(pcm)
	})
	if err := s.capture.Start(); err != nil {
		s.capture.ClearCallback()
		return &RecognitionError{Code: CodeAudioCapture, Message: err.Error()}
	}

	go s.runSender()
	go s.runReceiver()
	go s.runWatchdog()
	return nil
}

func (s *deepgramSession) feed(pcm []byte) {
	s.feedMu.Lock()
	if s.fed {
		s.feedMu.Unlock()
		return
	}
	if s.vad != nil {
		s.vad.Process(pcm)
	}
	s.feedBuf = append(s.feedBuf, pcm...)
	var chunks [][]byte
	for len(s.feedBuf) >= streamChunkBytes {
		chunk := make([]byte, streamChunkBytes)
		copy(chunk, s.feedBuf[:streamChunkBytes])
		s.feedBuf = s.feedBuf[streamChunkBytes:]
		chunks = append(chunks, chunk)
	}
	for _, chunk := range chunks {
		s.queue(chunk)
	}
	s.feedMu.Unlock()
}

// queue hands a chunk to the sender. Callers hold feedMu. A stalled
// connection drops audio rather than blocking the capture callback.
func (s *deepgramSession) queue(chunk []byte) {
	select {
	case s.audioCh <- chunk:
	default:
		s.mu.Lock()
		s.stats.DroppedChunks++
		s.mu.Unlock()
	}
}

func (s *deepgramSession) emit(m Message) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.outClosed {
		return
	}
	s.out <- m
}

func (s *deepgramSession) runSender() {
	defer close(s.sendDone)
	for chunk := range s.audioCh {
		if err := s.ws.Send(chunk); err != nil {
			s.fail(err)
			// keep draining so feed never blocks
			for range s.audioCh {
			}
			return
		}
		s.mu.Lock()
		s.stats.SentChunks++
		s.stats.SentBytes += uint64(len(chunk))
		s.mu.Unlock()
	}
	if err := s.ws.CloseSend(); err != nil {
		s.fail(err)
	}
}

func (s *deepgramSession) runReceiver() {
	defer close(s.recvDone)
	for {
		update, err := s.ws.Recv()
		if err != nil {
			s.fail(err)
			return
		}

		switch update.Kind {
		case updateUtteranceEnd:
			if s.markEnded(true) {
				s.emit(SpeechEndMessage())
			}
			continue
		case updateResults:
		default:
			continue
		}

		if update.FromFinalize {
			s.finalizedOnce.Do(func() { close(s.finalized) })
		}

		isFinal := update.IsFinal || update.SpeechFinal || update.FromFinalize

		s.mu.Lock()
		s.stats.RecvMessages++
		if isFinal {
			s.stats.RecvFinal++
		} else {
			s.stats.RecvInterim++
		}
		if update.Transcript != "" {
			s.heard = true
		}
		ev, ok := s.window.update(update.Transcript, update.Confidence, isFinal)
		s.mu.Unlock()

		if ok {
			s.emit(ResultMessage(ev))
		}
		if isFinal && update.Transcript != "" && !s.cfg.Continuous && s.markEnded(false) {
			s.emit(SpeechEndMessage())
		}
	}
}

// runWatchdog reports no-speech when nothing was recognized for the timeout.
// Voice heard locally pushes the deadline out while the service catches up.
func (s *deepgramSession) runWatchdog() {
	defer close(s.watchDone)
	if s.opts.NoSpeechTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.watchStop:
			return
		case <-ticker.C:
			if s.silentFor() >= s.opts.NoSpeechTimeout {
				s.emit(ErrorMessage(CodeNoSpeech, fmt.Sprintf("no speech detected within %s", s.opts.NoSpeechTimeout)))
				return
			}
		}
	}
}

// silentFor is how long the session has gone without recognized text or
// locally detected voice. It is zero once anything was recognized.
func (s *deepgramSession) silentFor() time.Duration {
	s.mu.Lock()
	heard, since := s.heard, s.startedAt
	s.mu.Unlock()
	if heard {
		return 0
	}
	if s.vad != nil {
		if last := s.vad.LastVoiceTime(); last.After(since) {
			since = last
		}
	}
	return time.Since(since)
}

// markEnded records that speech end was reported. With requireSpeech it
// only succeeds once something was heard.
func (s *deepgramSession) markEnded(requireSpeech bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended || (requireSpeech && !s.heard) {
		return false
	}
	s.ended = true
	return true
}

func (s *deepgramSession) fail(err error) {
	s.mu.Lock()
	closing := s.closing
	s.mu.Unlock()
	if closing || err == nil {
		return
	}
	log.Warnf("deepgram stream error: %v", err)
	code := CodeNetwork
	if errors.Is(err, context.Canceled) {
		code = CodeAborted
	}
	s.emit(ErrorMessage(code, err.Error()))
}

func (s *deepgramSession) close() error {
	s.capture.Stop()
	s.capture.ClearCallback()

	s.feedMu.Lock()
	if len(s.feedBuf) > 0 {
		tail := make([]byte, len(s.feedBuf))
		copy(tail, s.feedBuf)
		s.feedBuf = nil
		s.queue(tail)
	}
	s.fed = true
	close(s.audioCh)
	s.feedMu.Unlock()

	<-s.sendDone

	// Wait for server finalize acknowledgment, then brief quiet period
	select {
	case <-s.finalized:
		time.Sleep(streamFinalizeIdle)
	case <-s.recvDone:
	case <-time.After(streamFinalizeMax):
	}

	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.ws.Close()

	select {
	case <-s.recvDone:
	case <-time.After(streamDrainMax):
		log.Warn("stream receiver drain timeout")
	}

	close(s.watchStop)
	<-s.watchDone

	s.outMu.Lock()
	s.outClosed = true
	close(s.out)
	s.outMu.Unlock()

	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()
	var vadTotal, vadSpeech int
	if s.vad != nil {
		vadTotal, vadSpeech = s.vad.Stats()
	}
	log.StreamMetrics(log.StreamMetricsData{
		SentChunks:   stats.SentChunks,
		SentKB:       float64(stats.SentBytes) / 1024,
		AudioS:       float64(stats.SentBytes) / float64(audio.BytesPerSec),
		RecvMessages: stats.RecvMessages,
		RecvFinal:    stats.RecvFinal,
		RecvInterim:  stats.RecvInterim,
		TotalMs:      float64(time.Since(s.startedAt).Milliseconds()),
		VADFrames:    vadTotal,
		VADSpeech:    vadSpeech,
	})
	if stats.DroppedChunks > 0 {
		log.Warnf("dropped %d audio chunks on a stalled stream", stats.DroppedChunks)
	}
	return nil
}
