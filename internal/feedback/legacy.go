package feedback

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Scores are the legacy 0-10 ratings.
type Scores struct {
	Quality   float64
	Clarity   float64
	Relevance float64
}

// Percent converts a 0-10 rating to a clamped 0-100 percentage.
func Percent(score float64) int {
	switch {
	case score <= 0:
		return 0
	case score >= 10:
		return 100
	default:
		return int(score*10 + 0.5)
	}
}

type legacyPayload struct {
	Quality            *float64 `json:"quality"`
	Clarity            *float64 `json:"clarity"`
	Relevance          *float64 `json:"relevance"`
	PerformanceSummary string   `json:"performanceSummary"`
	Recommendations    []string `json:"recommendations"`
	InterviewResult    string   `json:"interviewResult"`
}

func (p legacyPayload) hasScores() bool {
	return p.Quality != nil || p.Clarity != nil || p.Relevance != nil
}

// ParseLegacy reads the older score-based JSON feedback shape.
func ParseLegacy(raw string) (Report, error) {
	var payload legacyPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return Report{}, fmt.Errorf("decode legacy feedback: %w", err)
	}
	if !payload.hasScores() && payload.PerformanceSummary == "" && len(payload.Recommendations) == 0 {
		return Report{}, fmt.Errorf("decode legacy feedback: no legacy fields present")
	}

	report := Report{
		OverallPerformance: strings.TrimSpace(payload.PerformanceSummary),
		Suggestions:        make([]string, 0, len(payload.Recommendations)),
		Scores: &Scores{
			Quality:   deref(payload.Quality),
			Clarity:   deref(payload.Clarity),
			Relevance: deref(payload.Relevance),
		},
	}
	for _, rec := range payload.Recommendations {
		if rec = StripMarkdown(rec); rec != "" {
			report.Suggestions = append(report.Suggestions, rec)
		}
	}
	if result := strings.TrimSpace(payload.InterviewResult); result != "" {
		selected := strings.EqualFold(result, "yes")
		report.Selected = &selected
	}
	return report, nil
}

// ParseAny picks the legacy reader for JSON objects that carry legacy fields
// and the heading parser for everything else.
func ParseAny(raw string) Report {
	if strings.HasPrefix(strings.TrimSpace(raw), "{") {
		if report, err := ParseLegacy(raw); err == nil {
			return report
		}
	}
	return Parse(raw)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
