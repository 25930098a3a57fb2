// Package beep plays short chimes for recording start, stop and errors.
package beep

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

var disabled atomic.Bool

// Disable silences every chime, for headless runs.
func Disable() { disabled.Store(true) }

func Enabled() bool { return !disabled.Load() }

const (
	sampleRate = 44100

	// start: high, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// end: lower, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// error: low double beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

type tone struct {
	freq     float64
	duration float64
	volume   float64
	decay    float64
}

// samples renders a decaying sine as mono int16.
func (t tone) samples() []int16 {
	n := int(float64(sampleRate) * t.duration)
	out := make([]int16, n)
	for i := range out {
		ts := float64(i) / float64(sampleRate)
		envelope := math.Exp(-ts * t.decay)
		out[i] = int16(math.Sin(2*math.Pi*t.freq*ts) * 32767 * t.volume * envelope)
	}
	return out
}

// doubleBeep plays t twice with a gap of silence between.
func doubleBeep(t tone, gap float64) []int16 {
	b := t.samples()
	silence := make([]int16, int(float64(sampleRate)*gap))
	out := make([]int16, 0, len(b)*2+len(silence))
	out = append(out, b...)
	out = append(out, silence...)
	return append(out, b...)
}

func toBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// chimes holds the rendered start, end and error sounds. tail pads each
// chime so short sounds are not cut off by the output buffer.
func chimes(tail float64) (start, end, errs []int16) {
	start = tone{startFreq, tail, startVolume, startDecay}.samples()
	end = tone{endFreq, tail, endVolume, endDecay}.samples()
	errs = doubleBeep(tone{errorFreq, 0.08, errorVolume, errorDecay}, 0.05)
	return start, end, errs
}
