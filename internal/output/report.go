// Package output publishes the feedback report after an interview: a
// markdown file under the state directory and, optionally, the clipboard.
package output

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/mockinterview/internal/config"
	"github.com/rbright/mockinterview/internal/feedback"
	"github.com/rs/zerolog"
)

// Document is everything a report file contains.
type Document struct {
	SessionID     string
	JobRole       string
	InterviewType string
	StartedAt     time.Time
	Questions     []string
	Answers       map[string]string
	Report        feedback.Report
}

// Publisher writes reports and copies them to the clipboard.
type Publisher struct {
	cfg    config.ReportConfig
	logger zerolog.Logger
}

// NewPublisher constructs a Publisher from report config.
func NewPublisher(cfg config.ReportConfig, logger zerolog.Logger) *Publisher {
	return &Publisher{cfg: cfg, logger: logger.With().Str("component", "output").Logger()}
}

// Publish writes doc as markdown and returns the file path. A clipboard
// failure is logged and does not fail the publish.
func (p *Publisher) Publish(ctx context.Context, doc Document) (string, error) {
	var body bytes.Buffer
	if err := Markdown(&body, doc); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	dir, err := p.dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(dir, fileName(doc))
	if err := os.WriteFile(path, body.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	p.logger.Info().Str("path", path).Msg("feedback report written")

	if p.cfg.Copy {
		clipboardCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := runCommandWithInput(clipboardCtx, p.cfg.Clipboard.Argv, body.String()); err != nil {
			p.logger.Error().Err(err).Msg("copy report to clipboard failed; report file remains")
		}
	}
	return path, nil
}

func (p *Publisher) dir() (string, error) {
	if p.cfg.Dir != "" {
		return p.cfg.Dir, nil
	}
	state, err := config.StateDir()
	if err != nil {
		return "", fmt.Errorf("resolve report dir: %w", err)
	}
	return filepath.Join(state, "reports"), nil
}

func fileName(doc Document) string {
	stamp := doc.StartedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}
	id := doc.SessionID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		id = "session"
	}
	return fmt.Sprintf("interview-%s-%s.md", stamp.UTC().Format("20060102T150405Z"), id)
}
