package announcer

import "regexp"

var sanitizeSteps = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\*\*([^*]+)\*\*`), "$1"},
	{regexp.MustCompile(`\*([^*]+)\*`), "$1"},
	{regexp.MustCompile(`_([^_]+)_`), "$1"},
	{regexp.MustCompile(`~([^~]+)~`), "$1"},
	{regexp.MustCompile(`#+\s?`), ""},
	{regexp.MustCompile(`- `), ""},
	{regexp.MustCompile("```[^`]+```"), ""},
	{regexp.MustCompile(`[^a-zA-Z\s.,!?']`), ""},
}

// Sanitize strips markdown markup and anything a synthesizer would read out
// as symbols.
func Sanitize(text string) string {
	for _, step := range sanitizeSteps {
		text = step.pattern.ReplaceAllString(text, step.replacement)
	}
	return text
}
