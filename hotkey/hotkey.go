package hotkey

import (
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Combo is a global key chord such as ctrl+shift+space.
type Combo struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Key   string // "space" or a single letter a-z
}

var DefaultCombo = Combo{Ctrl: true, Shift: true, Key: "space"}

func (c Combo) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.Shift {
		parts = append(parts, "shift")
	}
	if c.Alt {
		parts = append(parts, "alt")
	}
	return strings.Join(append(parts, c.Key), "+")
}

// Parse reads a combo like "ctrl+shift+space". At least one modifier is
// required so the chord does not swallow ordinary typing.
func Parse(s string) (Combo, error) {
	var c Combo
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i < len(parts)-1 {
			switch p {
			case "ctrl", "control":
				c.Ctrl = true
			case "shift":
				c.Shift = true
			case "alt", "option":
				c.Alt = true
			default:
				return Combo{}, fmt.Errorf("hotkey %q: unknown modifier %q", s, p)
			}
			continue
		}
		if p != "space" && (len(p) != 1 || p[0] < 'a' || p[0] > 'z') {
			return Combo{}, fmt.Errorf("hotkey %q: key must be space or a letter", s)
		}
		c.Key = p
	}
	if !c.Ctrl && !c.Shift && !c.Alt {
		return Combo{}, fmt.Errorf("hotkey %q: needs a modifier", s)
	}
	return c, nil
}
