// Package shutdown turns termination signals into context cancellation.
package shutdown

import (
	"context"
	"os"
	"os/signal"
)

// Context is cancelled on the first interrupt or terminate signal.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// Notify relays termination signals to ch.
func Notify(ch chan os.Signal) {
	signal.Notify(ch, signals...)
}
