package hotkey

import "time"

type Action int

const (
	// ActionToggle flips recording on a press.
	ActionToggle Action = iota
	// ActionRelease ends a press that was held past the long-press
	// threshold, so holding the chord works as push-to-talk.
	ActionRelease
)

// Toggle turns raw key edges into recording actions. Every press toggles;
// a long hold additionally stops on release.
type Toggle struct {
	actions chan Action
	stop    chan struct{}
}

func NewToggle(hk Hotkey, longPress time.Duration) *Toggle {
	t := &Toggle{
		actions: make(chan Action, 1),
		stop:    make(chan struct{}),
	}
	go t.run(hk, longPress)
	return t
}

func (t *Toggle) Actions() <-chan Action { return t.actions }

func (t *Toggle) Close() { close(t.stop) }

func (t *Toggle) send(a Action) bool {
	select {
	case t.actions <- a:
		return true
	case <-t.stop:
		return false
	}
}

func (t *Toggle) run(hk Hotkey, longPress time.Duration) {
	for {
		select {
		case <-hk.Keydown():
		case <-t.stop:
			return
		}
		if !t.send(ActionToggle) {
			return
		}

		held := longPress > 0
		var timer *time.Timer
		var timeout <-chan time.Time
		if held {
			timer = time.NewTimer(longPress)
			timeout = timer.C
		}
		select {
		case <-timeout:
			// held: wait for release, then stop
			select {
			case <-hk.Keyup():
			case <-t.stop:
				return
			}
			if !t.send(ActionRelease) {
				return
			}
		case <-hk.Keyup():
			if timer != nil {
				timer.Stop()
			}
		case <-t.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
