// Package metrics records interview counters and exports them as a
// node_exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mockinterview"

// Session outcomes.
const (
	OutcomeFeedback = "feedback"
	OutcomeError    = "error"
)

// Recorder owns one registry so each process run exports only its own series.
type Recorder struct {
	registry *prometheus.Registry

	sessionsTotal      *prometheus.CounterVec
	questionsAsked     prometheus.Counter
	answersSubmitted   prometheus.Counter
	advancesTotal      *prometheus.CounterVec
	recognizerFailures prometheus.Counter
	requestDuration    *prometheus.HistogramVec
}

// New builds a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Interview sessions finished, by outcome.",
		}, []string{"outcome"}),
		questionsAsked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_asked_total",
			Help:      "Questions announced to the candidate.",
		}),
		answersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "answers_submitted_total",
			Help:      "Answered questions sent for feedback.",
		}),
		advancesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advances_total",
			Help:      "Question turn endings, by reason.",
		}, []string{"reason"}),
		recognizerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognizer_failures_total",
			Help:      "Speech recognition failures during a turn.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Interview service request duration in seconds, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms → 64s
		}, []string{"endpoint", "result"}),
	}

	r.registry.MustRegister(
		r.sessionsTotal,
		r.questionsAsked,
		r.answersSubmitted,
		r.advancesTotal,
		r.recognizerFailures,
		r.requestDuration,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) SessionFinished(outcome string) {
	r.sessionsTotal.WithLabelValues(outcome).Inc()
}

func (r *Recorder) QuestionAsked() { r.questionsAsked.Inc() }

func (r *Recorder) AnswersSubmitted(n int) {
	if n > 0 {
		r.answersSubmitted.Add(float64(n))
	}
}

func (r *Recorder) Advanced(reason string) {
	r.advancesTotal.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecognizerFailed() { r.recognizerFailures.Inc() }

// ObserveRequest records one remote call.
func (r *Recorder) ObserveRequest(endpoint string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.requestDuration.WithLabelValues(endpoint, result).Observe(d.Seconds())
}

// WriteTextfile atomically writes the registry in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
