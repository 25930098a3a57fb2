// Package report renders and exports the plain-text analysis report.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voxa/frequency"
)

const FileName = "voice-analysis.txt"

// Build renders the report: the trimmed transcript, a blank line, then one
// "word: count" line per entry in the table's order.
func Build(finalText string, freq frequency.Map) string {
	var b strings.Builder
	b.WriteString("Transcript:\n")
	b.WriteString(strings.TrimSpace(finalText))
	b.WriteString("\n\nWord Frequency:\n")
	b.WriteString(strings.Join(freq.Lines(), "\n"))
	return b.String()
}

// Write saves the report as voice-analysis.txt in dir, replacing any
// previous report, and returns the file path.
func Write(dir, content string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, FileName)
	tmp, err := os.CreateTemp(dir, ".voice-analysis-*")
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}
