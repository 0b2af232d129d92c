// Package transcript accumulates recognized speech segments into answers.
package transcript

import "strings"

// Answer collects final recognizer segments for one question.
type Answer struct {
	segments []string
}

// Add appends one final segment, merging recognizer restatements.
// It reports whether the answer text changed.
func (a *Answer) Add(segment string) bool {
	before := len(a.segments)
	var last string
	if before > 0 {
		last = a.segments[before-1]
	}
	a.segments = appendSegment(a.segments, segment)
	return len(a.segments) != before || (before > 0 && a.segments[before-1] != last)
}

// Text returns the space-joined answer.
func (a *Answer) Text() string {
	if a == nil {
		return ""
	}
	return strings.Join(a.segments, " ")
}

// Empty reports whether no speech has been recorded.
func (a *Answer) Empty() bool {
	return a == nil || len(a.segments) == 0
}

// Clean collapses whitespace runs and trims the ends.
func Clean(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// appendSegment merges continuation segments to avoid duplicate growth.
func appendSegment(segments []string, segment string) []string {
	segment = Clean(segment)
	if segment == "" {
		return segments
	}
	if len(segments) == 0 {
		return append(segments, segment)
	}

	last := segments[len(segments)-1]
	switch {
	case segment == last:
		return segments
	case strings.HasPrefix(segment, last+" "):
		segments[len(segments)-1] = segment
		return segments
	default:
		return append(segments, segment)
	}
}
