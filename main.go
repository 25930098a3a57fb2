package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/alecthomas/kong"

	"voxa/audio"
	"voxa/beep"
	"voxa/config"
	"voxa/log"
	"voxa/recognizer"
	"voxa/session"
	"voxa/shutdown"
	"voxa/store"
)

var version = "dev"

type CLI struct {
	Config   string           `help:"YAML config file." type:"path" env:"VOXA_CONFIG"`
	Engine   string           `help:"Speech engine (deepgram or script)."`
	Script   string           `help:"Recognition script replayed by the script engine." type:"path"`
	Lang     string           `help:"Recognition language, e.g. en-US."`
	Model    string           `help:"Deepgram model."`
	Output   string           `help:"Directory for voice-analysis.txt." type:"path"`
	Data     string           `help:"Directory for the preference database." type:"path"`
	Logpath  string           `help:"Log directory (default: OS-specific location, use ./ for current dir)."`
	Device   string           `help:"Use named microphone device."`
	Setup    bool             `help:"Select microphone device interactively."`
	Wav      string           `help:"Stream a 16kHz mono WAV file instead of the microphone." type:"existingfile"`
	Headless bool             `help:"Run without the terminal UI, driven by stdin commands."`
	Hotkey   string           `help:"Global toggle chord, e.g. ctrl+shift+space, or off."`
	NoBeep   bool             `help:"Disable start and stop chimes."`
	Welcome  bool             `help:"Show the first-run hint again."`
	Version  kong.VersionFlag `help:"Print version and exit."`
}

// applyFlags lays non-empty flags over cfg.
func applyFlags(cfg *config.Config, cli *CLI) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Engine, cli.Engine)
	set(&cfg.Script, cli.Script)
	set(&cfg.Language, cli.Lang)
	set(&cfg.Deepgram.Model, cli.Model)
	set(&cfg.OutputDir, cli.Output)
	set(&cfg.DataDir, cli.Data)
	set(&cfg.Device, cli.Device)
	set(&cfg.Hotkey, cli.Hotkey)
	if cli.NoBeep {
		cfg.Beep = false
	}
}

func fatalf(format string, args ...any) {
	log.Errorf(format, args...)
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	log.Close()
	os.Exit(1)
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), log.CrashFile)
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func run() int {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("voxa"),
		kong.Description("Record speech, watch the live transcript, and export a word-frequency report."),
		kong.Vars{"version": "voxa " + version},
		kong.UsageOnError(),
	)

	logPath, err := log.ResolveDir(cli.Logpath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		fatalf("%v", err)
	}
	applyFlags(&cfg, &cli)
	if cli.Wav != "" && cfg.Engine != config.EngineDeepgram {
		fatalf("--wav needs the deepgram engine")
	}
	if err := cfg.Validate(); err != nil {
		fatalf("invalid configuration: %v", err)
	}

	if !cfg.Beep || cli.Headless {
		beep.Disable()
	}

	log.AppStart(version, cfg.Engine, cfg.Language)

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	prefs, err := store.Open(ctx, cfg.StorePath())
	if err != nil {
		fatalf("open preferences: %v", err)
	}
	defer prefs.Close()
	if cli.Welcome {
		if err := prefs.ForgetVisited(ctx); err != nil {
			log.Warnf("reset visited flag: %v", err)
		}
	}

	engine, cleanup, err := newEngine(cfg, &cli)
	if err != nil {
		fatalf("%v", err)
	}
	defer cleanup()

	if cli.Headless {
		return runHeadless(ctx, engine, cfg, os.Stdin, os.Stdout)
	}
	return runTUI(ctx, engine, cfg, prefs)
}

// newEngine builds the configured engine once for the process. cleanup
// releases audio resources after the last session.
func newEngine(cfg config.Config, cli *CLI) (recognizer.Engine, func(), error) {
	rcfg := recognizer.Config{
		Continuous:     cfg.Continuous,
		InterimResults: cfg.InterimResults,
		Language:       cfg.Language,
	}

	if cfg.Engine == config.EngineScript {
		steps, err := recognizer.LoadScript(cfg.Script)
		if err != nil {
			return nil, nil, fmt.Errorf("load script: %w", err)
		}
		return recognizer.NewScript(rcfg, steps), func() {}, nil
	}

	var actx audio.Context
	var err error
	if cli.Wav != "" {
		actx, err = audio.NewFakeContext(cli.Wav)
	} else {
		actx, err = audio.NewContext()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("initializing audio: %w", err)
	}

	device, err := pickDevice(actx, cfg.Device, cli.Setup)
	if err != nil {
		actx.Close()
		return nil, nil, err
	}
	capture, err := actx.NewCapture(device, audio.DefaultCaptureConfig())
	if err != nil {
		actx.Close()
		return nil, nil, fmt.Errorf("initializing capture device: %w", err)
	}
	log.Info("recording_device: " + capture.DeviceName())
	if device != nil && audio.IsBluetooth(device.Name) {
		log.Warn("bluetooth microphone selected; audio quality may be reduced")
	}

	engine := recognizer.NewDeepgram(rcfg, recognizer.DeepgramOptions{
		APIKey:          cfg.Deepgram.APIKey,
		Model:           cfg.Deepgram.Model,
		Endpoint:        cfg.Deepgram.Endpoint,
		UtteranceEndMs:  cfg.Deepgram.UtteranceEndMs,
		NoSpeechTimeout: cfg.NoSpeechTimeout(),
		Capture:         capture,
	})
	cleanup := func() {
		capture.Close()
		actx.Close()
	}
	return engine, cleanup, nil
}

func pickDevice(actx audio.Context, name string, setup bool) (*audio.DeviceInfo, error) {
	if name != "" {
		dev, err := audio.FindDevice(actx, name)
		if err != nil {
			return nil, fmt.Errorf("enumerating devices: %w", err)
		}
		if dev == nil {
			log.Warnf("device not found: %s", name)
			fmt.Fprintf(os.Stderr, "Warning: device %q not found, using default\n", name)
		}
		return dev, nil
	}
	if !setup {
		return nil, nil
	}
	dev, err := audio.SelectDevice(actx)
	if err != nil {
		log.Warnf("device selection failed: %v", err)
		fmt.Printf("Warning: device selection failed: %v\n", err)
		fmt.Println("Falling back to default device")
		return nil, nil
	}
	return dev, nil
}

// stopOnExit ends a session still running when the UI or driver exits so
// its transcript reaches the log.
func stopOnExit(ctrl *session.Controller) {
	if !ctrl.Recording() {
		return
	}
	if _, err := ctrl.Stop(); err != nil && !errors.Is(err, context.Canceled) {
		log.Warnf("stop on exit: %v", err)
	}
}
