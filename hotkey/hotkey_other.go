//go:build !linux

package hotkey

import (
	"fmt"

	"golang.design/x/hotkey"
)

type xHotkey struct {
	hk      *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	stop    chan struct{}
}

var letterKeys = [26]hotkey.Key{
	hotkey.KeyA, hotkey.KeyB, hotkey.KeyC, hotkey.KeyD, hotkey.KeyE, hotkey.KeyF,
	hotkey.KeyG, hotkey.KeyH, hotkey.KeyI, hotkey.KeyJ, hotkey.KeyK, hotkey.KeyL,
	hotkey.KeyM, hotkey.KeyN, hotkey.KeyO, hotkey.KeyP, hotkey.KeyQ, hotkey.KeyR,
	hotkey.KeyS, hotkey.KeyT, hotkey.KeyU, hotkey.KeyV, hotkey.KeyW, hotkey.KeyX,
	hotkey.KeyY, hotkey.KeyZ,
}

// New maps combo onto the OS hotkey API. Only ctrl and shift are portable
// across macOS and Windows.
func New(combo Combo) (Hotkey, error) {
	if combo.Alt {
		return nil, fmt.Errorf("hotkey %s: alt is not supported on this platform", combo)
	}
	var mods []hotkey.Modifier
	if combo.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if combo.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	key := hotkey.KeySpace
	if combo.Key != "space" {
		if len(combo.Key) != 1 || combo.Key[0] < 'a' || combo.Key[0] > 'z' {
			return nil, fmt.Errorf("unsupported hotkey key %q", combo.Key)
		}
		key = letterKeys[combo.Key[0]-'a']
	}
	return &xHotkey{
		hk:      hotkey.New(mods, key),
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}, nil
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	go h.forward(h.hk.Keydown(), h.keydown)
	go h.forward(h.hk.Keyup(), h.keyup)
	return nil
}

func (h *xHotkey) forward(in <-chan hotkey.Event, out chan struct{}) {
	for {
		select {
		case <-in:
		case <-h.stop:
			return
		}
		select {
		case out <- struct{}{}:
		default:
		}
	}
}

func (h *xHotkey) Unregister() {
	select {
	case <-h.stop:
		return
	default:
	}
	close(h.stop)
	h.hk.Unregister()
}

func (h *xHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *xHotkey) Keyup() <-chan struct{} {
	return h.keyup
}
