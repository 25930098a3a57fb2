package audio

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

// keyReader returns one keystroke per Read, like a raw terminal.
type keyReader struct {
	keys []string
}

func (r *keyReader) Read(p []byte) (int, error) {
	if len(r.keys) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.keys[0])
	r.keys = r.keys[1:]
	return n, nil
}

func testDevices() []DeviceInfo {
	return []DeviceInfo{
		{ID: "1", Name: "Built-in Microphone"},
		{ID: "2", Name: "AirPods Pro"},
		{ID: "3", Name: "USB Audio"},
	}
}

func TestPickerKeys(t *testing.T) {
	p := &picker{devices: testDevices()}
	steps := []struct {
		key    string
		cursor int
		result pickResult
	}{
		{"k", 0, pickPending},
		{"j", 1, pickPending},
		{"\x1b[B", 2, pickPending},
		{"\x1b[B", 2, pickPending},
		{"\x1b[A", 1, pickPending},
		{"x", 1, pickPending},
		{"\r", 1, pickChosen},
	}
	for i, st := range steps {
		if got := p.key([]byte(st.key)); got != st.result {
			t.Errorf("step %d: result = %v, want %v", i, got, st.result)
		}
		if p.cursor != st.cursor {
			t.Errorf("step %d: cursor = %d, want %d", i, p.cursor, st.cursor)
		}
	}
	if got := p.key([]byte{27}); got != pickDefault {
		t.Errorf("esc = %v, want pickDefault", got)
	}
}

func TestPickerRun(t *testing.T) {
	var out bytes.Buffer
	p := &picker{devices: testDevices()}
	dev, err := p.run(&keyReader{keys: []string{"j", "j", "\r"}}, &out)
	if err != nil {
		t.Fatal(err)
	}
	if dev == nil || dev.ID != "3" {
		t.Fatalf("picked %+v, want USB Audio", dev)
	}
	if !strings.Contains(out.String(), "[headset mic]") {
		t.Error("bluetooth device not tagged")
	}

	p = &picker{devices: testDevices()}
	dev, err = p.run(&keyReader{keys: []string{"\x1b"}}, &out)
	if err != nil || dev != nil {
		t.Errorf("esc = %+v, %v; want default device", dev, err)
	}

	p = &picker{devices: testDevices()}
	if _, err := p.run(&keyReader{}, &out); err == nil {
		t.Error("expected an error when input ends")
	}
}
