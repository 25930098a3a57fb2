//go:build !linux

package beep

import (
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"voxa/log"
)

var (
	malgoCtx     *malgo.AllocatedContext
	device       *malgo.Device
	startSamples []byte
	endSamples   []byte
	errorSamples []byte
	soundOnce    sync.Once

	// read from the audio callback
	playSamples atomic.Pointer[[]byte]
	playPos     atomic.Uint32
	playMu      sync.Mutex
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: dataCallback})
	return err
}

func initSound() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Warnf("malgo playback init error: %v", err)
		return
	}

	start, end, errs := chimes(0.05)
	startSamples, endSamples, errorSamples = toBytes(start), toBytes(end), toBytes(errs)

	if err := initDevice(); err != nil {
		log.Warnf("malgo playback device error: %v", err)
		malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func dataCallback(pOutput, _ []byte, frameCount uint32) {
	clear(pOutput)
	samples := playSamples.Load()
	if samples == nil {
		return
	}

	pos := playPos.Load()
	total := uint32(len(*samples))
	if pos >= total {
		playSamples.Store(nil)
		return
	}
	n := min(frameCount*2, total-pos)
	copy(pOutput[:n], (*samples)[pos:pos+n])
	playPos.Store(pos + n)
}

func playBytes(samples []byte) {
	if !Enabled() {
		return
	}
	soundOnce.Do(initSound)
	if malgoCtx == nil || len(samples) == 0 {
		return
	}

	playMu.Lock()
	defer playMu.Unlock()
	if device == nil {
		return
	}

	device.Stop()
	playPos.Store(0)
	playSamples.Store(&samples)

	if err := device.Start(); err != nil {
		// recreate after sleep/wake
		device.Uninit()
		if err := initDevice(); err != nil {
			playSamples.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			playSamples.Store(nil)
		}
	}
}

func Init() { soundOnce.Do(initSound) }

func PlayStart() { playBytes(startSamples) }

func PlayEnd() { playBytes(endSamples) }

func PlayError() { playBytes(errorSamples) }
