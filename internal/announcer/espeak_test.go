package announcer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const voicesTable = `Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 2  en-us           --/M      English_(America)  gmw/en-US            (en 10)
 5  en-029          --/M      English_(Caribbean) gmw/en-029
`

func TestParseVoices(t *testing.T) {
	voices := parseVoices([]byte(voicesTable))
	require.Len(t, voices, 3)
	require.Equal(t, Voice{ID: "en-us", Name: "English (America)", Language: "en-US", Local: true}, voices[1])
	require.Equal(t, "en-029", voices[2].Language)
}

func TestEspeakVoicesRunsCommand(t *testing.T) {
	e := Espeak{Argv: []string{"sh", "-c", `printf '%s\n' "Pty Language" " 5  en-us  --/M  English_(America)  gmw/en-US"`, "sh"}}
	voices, err := e.Voices(testContext(t))
	require.NoError(t, err)
	require.Len(t, voices, 1)
	require.Equal(t, "en-US", voices[0].Language)
}

func TestEspeakSayFeedsStdin(t *testing.T) {
	e := Espeak{Argv: []string{"sh", "-c", `cat >/dev/null`, "sh"}, Rate: 150}
	started := false
	require.NoError(t, e.Say(testContext(t), Voice{ID: "en-us"}, "hello", func() { started = true }))
	require.True(t, started)
}

func TestEspeakSayCancel(t *testing.T) {
	e := Espeak{Argv: []string{"sh", "-c", `exec sleep 5`, "sh"}}
	ctx, cancel := context.WithTimeout(testContext(t), 50*time.Millisecond)
	defer cancel()

	err := e.Say(ctx, Voice{}, "hello", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEspeakEmptyCommand(t *testing.T) {
	_, err := Espeak{}.Voices(testContext(t))
	require.Error(t, err)
	require.Error(t, Espeak{}.Say(testContext(t), Voice{}, "x", nil))
}
