package audio

import (
	"os"
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext plays PCM from a WAV file (or silence) instead of a microphone.
type FakeContext struct {
	pcm []byte
}

func NewFakeContext(wavPath string) (*FakeContext, error) {
	if wavPath == "" {
		return &FakeContext{}, nil
	}
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	return &FakeContext{pcm: data}, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return NewFakeCapture(f.pcm), nil
}

// FakeCapture delivers its PCM in real time, then silence until stopped.
type FakeCapture struct {
	pcm []byte

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
	starts   int
}

func NewFakeCapture(pcm []byte) *FakeCapture {
	return &FakeCapture{pcm: pcm}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

// Starts reports how many times Start was called.
func (f *FakeCapture) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	f.starts++
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	stopCh, feedDone := f.stopCh, f.feedDone
	f.mu.Unlock()

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(SampleRate)

	go func() {
		defer close(feedDone)
		pos := 0
		silence := make([]byte, chunkBytes)
		for {
			f.mu.Lock()
			cb := f.cb
			f.mu.Unlock()

			if cb != nil {
				if pos < len(f.pcm) {
					end := min(pos+chunkBytes, len(f.pcm))
					chunk := make([]byte, end-pos)
					copy(chunk, f.pcm[pos:end])
					cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
					pos = end
				} else {
					cb(silence, fakeFrameSize)
				}
			}

			select {
			case <-stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	stopCh, feedDone := f.stopCh, f.feedDone
	f.mu.Unlock()
	if stopCh == nil {
		return
	}
	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	<-feedDone
}

func (f *FakeCapture) Close() { f.Stop() }
