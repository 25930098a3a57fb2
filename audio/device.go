package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var ErrNoDevices = errors.New("no capture devices found")

type pickResult int

const (
	pickPending pickResult = iota
	pickChosen
	pickDefault
)

// picker is the state of the interactive device list.
type picker struct {
	devices []DeviceInfo
	cursor  int
}

// key applies one read from the raw terminal.
func (p *picker) key(in []byte) pickResult {
	switch {
	case len(in) == 1:
		switch in[0] {
		case '\r', '\n':
			return pickChosen
		case 3, 27, 'q': // ctrl+c, esc
			return pickDefault
		case 'j':
			p.move(1)
		case 'k':
			p.move(-1)
		}
	case len(in) == 3 && in[0] == 0x1b && in[1] == '[':
		switch in[2] {
		case 'A':
			p.move(-1)
		case 'B':
			p.move(1)
		}
	}
	return pickPending
}

func (p *picker) move(delta int) {
	p.cursor = min(max(p.cursor+delta, 0), len(p.devices)-1)
}

func (p *picker) render() string {
	var b strings.Builder
	b.WriteString("\r\x1b[J")
	b.WriteString("Microphone for voice analysis (↑/↓ or j/k, Enter to confirm, Esc for default):\r\n\r\n")
	for i, d := range p.devices {
		tag := ""
		if IsBluetooth(d.Name) {
			tag = " \x1b[33m[headset mic]\x1b[0m"
		}
		if i == p.cursor {
			fmt.Fprintf(&b, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
		} else {
			fmt.Fprintf(&b, "    %s%s\r\n", d.Name, tag)
		}
	}
	return b.String()
}

// run redraws the list after every key until a choice is made. A nil device
// means the system default.
func (p *picker) run(in io.Reader, out io.Writer) (*DeviceInfo, error) {
	io.WriteString(out, p.render())
	buf := make([]byte, 3)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		switch p.key(buf[:n]) {
		case pickChosen:
			io.WriteString(out, "\r\n")
			return &p.devices[p.cursor], nil
		case pickDefault:
			io.WriteString(out, "\r\n")
			return nil, nil
		}
		fmt.Fprintf(out, "\x1b[%dA", len(p.devices)+2)
		io.WriteString(out, p.render())
	}
}

// SelectDevice lets the user pick a microphone on the terminal. With a
// single device it returns that device without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, ErrNoDevices
	case 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	p := &picker{devices: devices}
	return p.run(os.Stdin, os.Stdout)
}
