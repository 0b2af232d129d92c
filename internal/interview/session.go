package interview

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/mockinterview/internal/transcript"
)

// Session is one interview attempt. Only the controller loop mutates it.
type Session struct {
	ID            string
	JobRole       string
	InterviewType string
	ResumePath    string

	Questions []string
	Index     int
	Buffer    string

	StartedAt  time.Time
	FinishedAt time.Time

	answers []transcript.Answer
	reached int
}

func newSession(req StartRequest, now time.Time) *Session {
	return &Session{
		ID:            uuid.NewString(),
		JobRole:       req.JobRole,
		InterviewType: req.InterviewType,
		ResumePath:    req.ResumePath,
		StartedAt:     now,
	}
}

func (s *Session) setQuestions(questions []string) {
	s.Questions = append([]string(nil), questions...)
	s.answers = make([]transcript.Answer, len(questions))
	s.Index = 0
	s.Buffer = ""
	s.reached = 1
}

// Current returns the question being asked, or "" past the end.
func (s *Session) Current() string {
	if s.Index < 0 || s.Index >= len(s.Questions) {
		return ""
	}
	return s.Questions[s.Index]
}

// appendFinal adds a final transcript to the current answer.
func (s *Session) appendFinal(text string) bool {
	if s.Index >= len(s.answers) {
		return false
	}
	return s.answers[s.Index].Add(text)
}

// commitBuffer moves pending interim text into the current answer.
func (s *Session) commitBuffer() bool {
	pending := s.Buffer
	s.Buffer = ""
	if transcript.Clean(pending) == "" {
		return false
	}
	return s.appendFinal(pending)
}

// next moves to the following question and reports whether one exists.
func (s *Session) next() bool {
	if s.Index+1 >= len(s.Questions) {
		return false
	}
	s.Index++
	s.Buffer = ""
	if s.Index+1 > s.reached {
		s.reached = s.Index + 1
	}
	return true
}

// Answers returns the non-empty answers keyed by question position.
func (s *Session) Answers() map[int]string {
	out := make(map[int]string)
	for i := range s.answers {
		if !s.answers[i].Empty() {
			out[i] = s.answers[i].Text()
		}
	}
	return out
}

// Answered counts questions with a recorded answer.
func (s *Session) Answered() int {
	return len(s.Answers())
}

// Payload builds the feedback request body: every question reached during
// the session keyed by its text, repeated texts suffixed " (2)", " (3)", ...
func (s *Session) Payload() map[string]string {
	out := make(map[string]string, s.reached)
	seen := make(map[string]int, s.reached)
	for i := 0; i < s.reached && i < len(s.Questions); i++ {
		key := s.Questions[i]
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s (%d)", key, n)
		}
		out[key] = s.answers[i].Text()
	}
	return out
}
