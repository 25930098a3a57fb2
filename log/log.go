package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcriptFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

const (
	DiagnosticsFile = "diagnostics_log.txt"
	TranscriptFile  = "transcript_log.txt"
	CrashFile       = "crash_log.txt"
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: --logpath flag
	if flagPath != "" {
		return absPath(flagPath)
	}

	// Priority 2: VOXA_LOG_PATH environment variable
	if envPath := os.Getenv("VOXA_LOG_PATH"); envPath != "" {
		return absPath(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagFile, err = os.OpenFile(filepath.Join(dir, DiagnosticsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcriptFile, err = os.OpenFile(filepath.Join(dir, TranscriptFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		diagFile = nil
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcriptFile != nil {
		transcriptFile.Close()
		transcriptFile = nil
	}
	logReady = false
}

func ready() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return logReady
}

func Info(msg string) {
	if ready() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if ready() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if ready() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if ready() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if ready() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func AppStart(version, engine, lang string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("version", version).
		Str("engine", engine).
		Str("lang", lang).
		Msg("app_start")
}

func AppExit(sessions int) {
	if !ready() {
		return
	}
	diagLog.Info().Int("sessions", sessions).Msg("app_exit")
}

func SessionStart(id, engine, lang string) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("session", id).
		Str("engine", engine).
		Str("lang", lang).
		Msg("session_start")
}

type SessionSummary struct {
	ID       string
	Reason   string
	Elapsed  int
	Events   int
	Words    int
	Distinct int
}

func SessionEnd(s SessionSummary) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("session", s.ID).
		Str("reason", s.Reason).
		Int("elapsed_s", s.Elapsed).
		Int("events", s.Events).
		Int("words", s.Words).
		Int("distinct", s.Distinct).
		Msg("session_end")
}

func RecognitionError(session, code, msg string) {
	if !ready() {
		return
	}
	diagLog.Warn().
		Str("session", session).
		Str("code", code).
		Str("detail", msg).
		Msg("recognition_error")
}

type StreamMetricsData struct {
	TotalMs      float64
	AudioS       float64
	SentChunks   int
	SentKB       float64
	RecvMessages int
	RecvFinal    int
	RecvInterim  int
	VADFrames    int
	VADSpeech    int
}

func StreamMetrics(m StreamMetricsData) {
	if !ready() {
		return
	}
	diagLog.Info().
		Float64("total_ms", m.TotalMs).
		Float64("audio_s", m.AudioS).
		Int("sent_chunks", m.SentChunks).
		Float64("sent_kb", m.SentKB).
		Int("recv_messages", m.RecvMessages).
		Int("recv_final", m.RecvFinal).
		Int("recv_interim", m.RecvInterim).
		Int("vad_frames", m.VADFrames).
		Int("vad_speech", m.VADSpeech).
		Msg("stream_transcription")
}

// TranscriptText appends one session's final transcript to the transcript log.
func TranscriptText(session, text string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady || text == "" {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, session, text)
	transcriptFile.WriteString(line)
}
