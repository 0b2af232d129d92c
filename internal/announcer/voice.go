package announcer

import "strings"

// Voice is one synthesizer voice.
type Voice struct {
	ID       string
	Name     string
	Language string
	Local    bool
}

// VoicePolicy ranks voices for announcements.
type VoicePolicy struct {
	Preferred []string
	Default   string
}

// SelectVoice picks a local, non-compact voice in a preferred language, then
// any voice in the default language, then the first voice.
func SelectVoice(voices []Voice, policy VoicePolicy) (Voice, bool) {
	for _, v := range voices {
		if !v.Local || strings.Contains(strings.ToLower(v.Name), "compact") {
			continue
		}
		for _, lang := range policy.Preferred {
			if lang != "" && strings.HasPrefix(strings.ToLower(v.Language), strings.ToLower(lang)) {
				return v, true
			}
		}
	}
	if policy.Default != "" {
		for _, v := range voices {
			if strings.EqualFold(v.Language, policy.Default) {
				return v, true
			}
		}
	}
	if len(voices) > 0 {
		return voices[0], true
	}
	return Voice{}, false
}
