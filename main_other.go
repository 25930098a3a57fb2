//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

// The OS hotkey API must run on the main thread on macOS.
func main() {
	var code int
	mainthread.Init(func() { code = run() })
	os.Exit(code)
}
