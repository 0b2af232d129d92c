package output

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rbright/mockinterview/internal/config"
	"github.com/rbright/mockinterview/internal/feedback"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func sampleDocument() Document {
	return Document{
		SessionID:     "0f8fad5b-d9cb-469f-a165-70867728950e",
		JobRole:       "Backend Engineer",
		InterviewType: "Technical",
		StartedAt:     time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC),
		Questions:     []string{"What is a race condition?", "Describe CAP theorem.", "Never reached?"},
		Answers: map[string]string{
			"What is a race condition?": "Unsynchronised access.",
			"Describe CAP theorem.":     "",
		},
		Report: feedback.Report{
			OverallPerformance: "Solid.",
			Suggestions:        []string{"Use examples"},
			SpecificFeedback:   "CAP was thin.",
		},
	}
}

func TestMarkdownIncludesTranscriptAndFeedback(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, sampleDocument()))
	out := buf.String()

	require.Contains(t, out, "- Role: Backend Engineer\n")
	require.Contains(t, out, "1. **What is a race condition?**\n   Unsynchronised access.\n")
	require.Contains(t, out, "2. **Describe CAP theorem.**\n   (no answer)\n")
	require.NotContains(t, out, "Never reached?")
	require.Contains(t, out, "## Overall Performance\n\nSolid.")
	require.Contains(t, out, "- Use examples\n")
}

func TestPublishWritesReportAndCopies(t *testing.T) {
	clipboardPath := filepath.Join(t.TempDir(), "clipboard.txt")
	dir := filepath.Join(t.TempDir(), "reports")

	publisher := NewPublisher(config.ReportConfig{
		Dir:       dir,
		Copy:      true,
		Clipboard: config.CommandConfig{Argv: []string{writeStdinCaptureScript(t), clipboardPath}},
	}, zerolog.Nop())

	path, err := publisher.Publish(context.Background(), sampleDocument())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "interview-20260304T103000Z-0f8fad5b.md"), path)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	copied, err := os.ReadFile(clipboardPath)
	require.NoError(t, err)
	require.Equal(t, string(written), string(copied))
	require.True(t, strings.HasPrefix(string(written), "# Mock interview feedback"))
}

func TestPublishDefaultsToStateDir(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	publisher := NewPublisher(config.ReportConfig{}, zerolog.Nop())
	path, err := publisher.Publish(context.Background(), sampleDocument())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(state, "mockinterview", "reports"), filepath.Dir(path))
}

func TestPublishClipboardFailureKeepsReport(t *testing.T) {
	publisher := NewPublisher(config.ReportConfig{
		Dir:       t.TempDir(),
		Copy:      true,
		Clipboard: config.CommandConfig{Argv: []string{writeFailScript(t, "clipboard failed")}},
	}, zerolog.Nop())

	path, err := publisher.Publish(context.Background(), sampleDocument())
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestRunCommandWithInput(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "stdin.txt")
	require.NoError(t, runCommandWithInput(context.Background(), []string{writeStdinCaptureScript(t), outputPath}, "hello"))
	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	err = runCommandWithInput(context.Background(), nil, "payload")
	require.ErrorContains(t, err, "argv cannot be empty")

	err = runCommandWithInput(context.Background(), []string{writeFailScript(t, "boom")}, "")
	require.ErrorContains(t, err, "boom")
}

func writeStdinCaptureScript(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture-stdin.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\ncat > \"$1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fail.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\necho \"" + message + "\" >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
