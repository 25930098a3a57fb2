package audio

import (
	"sync"
	"time"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

const (
	vadMode       = 3
	vadFrameMs    = 20
	vadFrameBytes = SampleRate * vadFrameMs / 1000 * 2 // 640 bytes
	vadDebounce   = 3                                  // consecutive speech frames to confirm voice
)

// VAD classifies captured PCM as voice or silence in 20ms frames.
type VAD struct {
	vad *webrtcvad.VAD

	mu            sync.Mutex
	buf           []byte
	voiceDetected bool
	lastVoiceTime time.Time
	speechRun     int
	totalFrames   int
	speechFrames  int
}

func NewVAD() (*VAD, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}
	return &VAD{vad: v}, nil
}

// Process accepts PCM in any chunk size; partial frames carry over.
func (p *VAD) Process(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = append(p.buf, data...)
	for len(p.buf) >= vadFrameBytes {
		frame := p.buf[:vadFrameBytes]
		p.buf = p.buf[vadFrameBytes:]

		active, err := p.vad.Process(SampleRate, frame)
		if err != nil {
			continue
		}
		p.totalFrames++
		if !active {
			p.speechRun = 0
			continue
		}
		p.speechFrames++
		p.speechRun++
		if p.voiceDetected {
			p.lastVoiceTime = time.Now()
		} else if p.speechRun >= vadDebounce {
			p.voiceDetected = true
			p.lastVoiceTime = time.Now()
		}
	}
}

func (p *VAD) VoiceDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.voiceDetected
}

// LastVoiceTime is zero until voice is confirmed.
func (p *VAD) LastVoiceTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastVoiceTime
}

func (p *VAD) Stats() (total, speech int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalFrames, p.speechFrames
}

func (p *VAD) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buf = p.buf[:0]
	p.voiceDetected = false
	p.lastVoiceTime = time.Time{}
	p.speechRun = 0
	p.totalFrames = 0
	p.speechFrames = 0
}
