package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voxa/clipboard"
	"voxa/config"
	"voxa/hotkey"
	"voxa/log"
	"voxa/recognizer"
	"voxa/session"
	"voxa/store"
)

// TUI message types
type RecordingStartMsg struct{ SessionID string }
type RecordingStopMsg struct{ Analysis session.Analysis }
type RecordingTickMsg struct{ Elapsed int }
type TranscriptMsg struct{ Text string }
type RecognitionErrorMsg struct{ Err *recognizer.RecognitionError }
type cmdErrMsg struct{ Err error }
type reportSavedMsg struct{ Path string }
type reportCopiedMsg struct{}

const (
	noTranscriptText = "No transcript yet."
	noWordsText      = "No words analyzed yet."
	hotkeyLongPress  = 350 * time.Millisecond
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

type tuiModel struct {
	ctx       context.Context
	ctrl      *session.Controller
	outputDir string
	modeLine  string
	hotkey    string

	recording bool
	pending   bool // start or stop in flight
	elapsed   int
	display   string
	analysis  session.Analysis
	status    string
	statusErr bool
	showHint  bool

	width, height int
}

func newTUIModel(ctx context.Context, ctrl *session.Controller, cfg config.Config, firstRun bool) tuiModel {
	eng := ctrl.Engine()
	return tuiModel{
		ctx:       ctx,
		ctrl:      ctrl,
		outputDir: cfg.OutputDir,
		modeLine:  fmt.Sprintf("[%s | %s]", eng.Name(), eng.Config().Language),
		showHint:  firstRun,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) startCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		if err := ctrl.Start(ctx); err != nil {
			return cmdErrMsg{Err: err}
		}
		return nil
	}
}

func (m tuiModel) stopCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		if _, err := ctrl.Stop(); err != nil {
			return cmdErrMsg{Err: err}
		}
		return nil
	}
}

func (m tuiModel) downloadCmd() tea.Cmd {
	ctrl, dir := m.ctrl, m.outputDir
	return func() tea.Msg {
		path, err := ctrl.Download(dir)
		if err != nil {
			return cmdErrMsg{Err: err}
		}
		return reportSavedMsg{Path: path}
	}
}

func (m tuiModel) copyCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		if err := clipboard.Copy(ctrl.Report()); err != nil {
			return cmdErrMsg{Err: err}
		}
		return reportCopiedMsg{}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		m.showHint = false
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "s":
			if !m.recording && !m.pending {
				m.pending = true
				return m, m.startCmd()
			}
		case "x":
			if m.recording && !m.pending {
				m.pending = true
				return m, m.stopCmd()
			}
		case " ":
			if m.pending {
				break
			}
			m.pending = true
			if m.recording {
				return m, m.stopCmd()
			}
			return m, m.startCmd()
		case "d":
			return m, m.downloadCmd()
		case "c":
			return m, m.copyCmd()
		}

	case RecordingStartMsg:
		m.recording = true
		m.pending = false
		m.elapsed = 0
		m.display = ""
		m.analysis = session.Analysis{}
		m.status = ""
		m.statusErr = false

	case RecordingStopMsg:
		m.recording = false
		m.pending = false
		m.analysis = msg.Analysis
		m.display = strings.TrimSpace(m.display)

	case RecordingTickMsg:
		m.elapsed = msg.Elapsed

	case TranscriptMsg:
		m.display = msg.Text

	case RecognitionErrorMsg:
		m.status = msg.Err.Error()
		m.statusErr = true

	case cmdErrMsg:
		m.pending = false
		if !errors.Is(msg.Err, session.ErrAlreadyRecording) {
			m.status = msg.Err.Error()
			m.statusErr = true
		}

	case reportSavedMsg:
		m.status = "Report saved to " + msg.Path
		m.statusErr = false

	case reportCopiedMsg:
		m.status = "Report copied to clipboard"
		m.statusErr = false
	}
	return m, nil
}

func (m tuiModel) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	wrapWidth := max(width-2, 10)

	var lines []string

	var state string
	if m.recording {
		state = recStyle.Render("● REC")
	} else {
		state = idleStyle.Render("○ READY")
	}
	lines = append(lines, titleStyle.Render("voxa")+"  "+state+"  "+fmt.Sprintf("Time: %ds", m.elapsed))
	lines = append(lines, dimStyle.Render(m.modeLine))
	if m.showHint {
		lines = append(lines, okStyle.Render("Welcome! Press s to start recording, x to stop, d to save the report."))
	}

	lines = append(lines, "", headStyle.Render("Transcript"))
	if text := strings.TrimSpace(m.display); text != "" {
		for _, l := range wrapText(text, wrapWidth) {
			lines = append(lines, textStyle.Render(l))
		}
	} else {
		lines = append(lines, dimStyle.Render(noTranscriptText))
	}

	lines = append(lines, "", headStyle.Render("Word Frequency"))
	freq := m.analysis.Frequency.Lines()
	footer := m.footer()
	if len(freq) == 0 {
		lines = append(lines, dimStyle.Render(noWordsText))
	} else {
		room := len(freq)
		if m.height > 0 {
			room = max(m.height-len(lines)-len(footer), 1)
		}
		if room < len(freq) {
			hidden := len(freq) - room + 1
			freq = append(freq[:room-1:room-1], fmt.Sprintf("… %d more (press d to save the full report)", hidden))
		}
		lines = append(lines, freq...)
	}

	lines = append(lines, footer...)
	return strings.Join(lines, "\n")
}

func (m tuiModel) footer() []string {
	out := []string{""}
	if m.status != "" {
		if m.statusErr {
			out = append(out, errStyle.Render(m.status))
		} else {
			out = append(out, okStyle.Render(m.status))
		}
	}
	keys := []struct{ key, label string }{
		{"s", "start"}, {"x", "stop"}, {"space", "toggle"},
		{"d", "download"}, {"c", "copy"}, {"q", "quit"},
	}
	var help []string
	for _, k := range keys {
		help = append(help, helpKeyStyle.Render(k.key)+helpStyle.Render(" "+k.label))
	}
	line := strings.Join(help, helpStyle.Render(" · "))
	if m.hotkey != "" {
		line += helpStyle.Render("   global: ") + helpKeyStyle.Render(m.hotkey)
	}
	out = append(out, line, helpStyle.Render("voxa "+version))
	return out
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	// width counts runes so multibyte text is never cut mid-character
	var lines []string
	rest := []rune(text)
	for len(rest) > width {
		// last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if rest[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(rest[:splitAt]))
		rest = rest[splitAt:]
		for len(rest) > 0 && rest[0] == ' ' {
			rest = rest[1:]
		}
	}
	if len(rest) > 0 {
		lines = append(lines, string(rest))
	}
	return lines
}

// startHotkey binds the global chord to the controller. It returns a release
// func and the chord label, or an empty label when no hotkey is active.
func startHotkey(ctx context.Context, ctrl *session.Controller, chord string) (func(), string) {
	noop := func() {}
	if chord == "" || chord == "off" {
		return noop, ""
	}
	combo, err := hotkey.Parse(chord)
	if err != nil {
		log.Warnf("hotkey: %v", err)
		return noop, ""
	}
	hk, err := hotkey.New(combo)
	if err != nil {
		log.Warnf("hotkey: %v", err)
		return noop, ""
	}
	if err := hk.Register(); err != nil {
		log.Warnf("hotkey register error: %v", err)
		return noop, ""
	}

	tg := hotkey.NewToggle(hk, hotkeyLongPress)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case a := <-tg.Actions():
				var err error
				switch a {
				case hotkey.ActionToggle:
					log.Info("hotkey_toggle")
					err = ctrl.Toggle(ctx)
				case hotkey.ActionRelease:
					log.Info("hotkey_release")
					_, err = ctrl.Stop()
				}
				if err != nil {
					tuiSend(cmdErrMsg{Err: err})
				}
			}
		}
	}()
	return func() {
		tg.Close()
		hk.Unregister()
	}, combo.String()
}

func runTUI(ctx context.Context, engine recognizer.Engine, cfg config.Config, prefs *store.Store) int {
	visited, err := prefs.HasVisited(ctx)
	if err != nil {
		log.Warnf("read visited flag: %v", err)
		visited = true
	}
	if !visited {
		if err := prefs.MarkVisited(ctx); err != nil {
			log.Warnf("write visited flag: %v", err)
		}
	}

	ctrl := session.New(engine, tuiSink{}, session.Options{})
	m := newTUIModel(ctx, ctrl, cfg, !visited)

	release, label := startHotkey(ctx, ctrl, cfg.Hotkey)
	defer release()
	m.hotkey = label

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	tuiMu.Lock()
	tuiProgram = p
	tuiMu.Unlock()

	_, runErr := p.Run()

	tuiMu.Lock()
	tuiProgram = nil
	tuiMu.Unlock()

	stopOnExit(ctrl)
	log.AppExit(ctrl.Sessions())

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		log.Errorf("TUI error: %v", runErr)
		return 1
	}
	return 0
}
