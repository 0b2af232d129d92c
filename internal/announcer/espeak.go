package announcer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Espeak drives espeak-ng (or a compatible command) as a Synthesizer.
type Espeak struct {
	Argv []string
	Rate int
}

// Voices lists installed voices via --voices.
func (e Espeak) Voices(ctx context.Context) ([]Voice, error) {
	if len(e.Argv) == 0 {
		return nil, fmt.Errorf("synthesizer command is empty")
	}
	args := append(append([]string(nil), e.Argv[1:]...), "--voices")
	out, err := exec.CommandContext(ctx, e.Argv[0], args...).Output()
	if err != nil {
		return nil, fmt.Errorf("list voices with %s: %w", e.Argv[0], err)
	}
	return parseVoices(out), nil
}

// Say speaks text with voice and blocks until playback ends or ctx is done.
func (e Espeak) Say(ctx context.Context, voice Voice, text string, started func()) error {
	if len(e.Argv) == 0 {
		return fmt.Errorf("synthesizer command is empty")
	}
	args := append([]string(nil), e.Argv[1:]...)
	if voice.ID != "" {
		args = append(args, "-v", voice.ID)
	}
	if e.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(e.Rate))
	}
	args = append(args, "--stdin")

	cmd := exec.CommandContext(ctx, e.Argv[0], args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.Argv[0], err)
	}
	if started != nil {
		started()
	}
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", e.Argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", e.Argv[0], err)
	}
	return nil
}

// parseVoices reads the espeak-ng --voices table:
//
//	Pty Language       Age/Gender VoiceName          File        Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US   (en 10)
func parseVoices(out []byte) []Voice {
	var voices []Voice
	for i, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if i == 0 && len(fields) > 0 && fields[0] == "Pty" {
			continue
		}
		if len(fields) < 4 {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		voices = append(voices, Voice{
			ID:       fields[1],
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: canonicalLanguage(fields[1]),
			Local:    true,
		})
	}
	return voices
}

// canonicalLanguage upper-cases the region subtag: en-us -> en-US.
func canonicalLanguage(tag string) string {
	parts := strings.Split(tag, "-")
	if len(parts) >= 2 && len(parts[1]) == 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}
