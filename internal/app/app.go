// Package app dispatches parsed commands: it runs an interview in the
// foreground or talks to the one already running.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rbright/mockinterview/internal/announcer"
	"github.com/rbright/mockinterview/internal/cli"
	"github.com/rbright/mockinterview/internal/coach"
	"github.com/rbright/mockinterview/internal/config"
	"github.com/rbright/mockinterview/internal/doctor"
	"github.com/rbright/mockinterview/internal/feedback"
	"github.com/rbright/mockinterview/internal/fsm"
	"github.com/rbright/mockinterview/internal/indicator"
	"github.com/rbright/mockinterview/internal/interview"
	"github.com/rbright/mockinterview/internal/ipc"
	"github.com/rbright/mockinterview/internal/logging"
	"github.com/rbright/mockinterview/internal/media"
	"github.com/rbright/mockinterview/internal/metrics"
	"github.com/rbright/mockinterview/internal/output"
	"github.com/rbright/mockinterview/internal/pipeline"
	"github.com/rbright/mockinterview/internal/version"
	"github.com/rs/zerolog"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer

	// Logger replaces the JSONL file logger when set.
	Logger *zerolog.Logger
	// Backend replaces the PulseAudio backend when set.
	Backend media.Backend
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("mockinterview"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("mockinterview"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := logRuntime.Logger
	if r.Logger != nil {
		logger = *r.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn().Int("line", w.Line).Str("message", w.Message).Msg("config warning")
	}

	logger.Info().
		Str("command", string(parsed.Command)).
		Str("config", cfgLoaded.Path).
		Str("log", logRuntime.Path).
		Msg("command start")

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded, r.backend(), logger)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx, cfgLoaded.Config, logger)
	case cli.CommandVoices:
		return r.commandVoices(ctx, cfgLoaded.Config)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.CommandStop)
	case cli.CommandReset:
		return r.forwardOrFail(ctx, ipc.CommandReset)
	case cli.CommandStart:
		return r.commandStart(ctx, cfgLoaded.Config, parsed.Start, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) backend() media.Backend {
	if r.Backend != nil {
		return r.Backend
	}
	return media.PulseBackend{}
}

func (r Runner) commandDevices(ctx context.Context, cfg config.Config, logger zerolog.Logger) int {
	manager := media.NewManager(r.backend(), media.Options{Input: cfg.Audio.Input, Fallback: cfg.Audio.Fallback}, logger)
	devices, err := manager.Devices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	fmt.Fprintln(r.Stdout, "inputs:")
	for _, device := range devices {
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			mark(device.Default),
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}

	outputs, err := manager.Outputs(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, "outputs:")
	for _, sink := range outputs {
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | port=%s | headphones=%s\n",
			mark(sink.Default),
			sink.ID,
			sink.Description,
			sink.ActivePort,
			yesNo(sink.Headphones()),
		)
	}
	return 0
}

func (r Runner) commandVoices(ctx context.Context, cfg config.Config) int {
	voices, err := pipeline.Synthesizer(cfg).Voices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(voices) == 0 {
		fmt.Fprintln(r.Stdout, "no voices installed")
		return 1
	}
	selected, _ := announcer.SelectVoice(voices, pipeline.Voices(cfg))
	for _, voice := range voices {
		fmt.Fprintf(r.Stdout, "%s %s | %s | %s\n", mark(voice.ID == selected.ID), voice.ID, voice.Language, voice.Name)
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, fsm.StateIdle)
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if !handled {
		fmt.Fprintln(r.Stdout, fsm.StateIdle)
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		resp.State = string(fsm.StateIdle)
	}
	fmt.Fprintln(r.Stdout, resp.State)
	if p := resp.Progress; p.Asking() {
		fmt.Fprintf(r.Stdout, "question %d/%d (%d answered): %s\n", p.Index+1, p.Total, p.Answered, p.Question)
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command ipc.Command) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no active interview session")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandStart(ctx context.Context, cfg config.Config, opts cli.StartOptions, logger zerolog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipc.AcquireOptions{ProbeTimeout: 180 * time.Millisecond, Retries: 8})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	engines, err := pipeline.Build(cfg, r.backend(), logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		if err := engines.Close(); err != nil {
			logger.Warn().Err(err).Msg("close pipeline")
		}
	}()

	recorder := metrics.New()
	defer func() {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn().Err(err).Str("path", cfg.Metrics.Textfile).Msg("write metrics textfile")
		}
	}()

	notifier := indicator.New(cfg.Indicator, logger)
	defer notifier.Wait()

	controller := interview.New(interview.Deps{
		Media:       engines.Media,
		Recognizer:  engines.Recognizer,
		Announcer:   engines.Announcer,
		Service:     coach.New(coachConfig(cfg), logger, recorder),
		Indicator:   notifier,
		Metrics:     recorder,
		Logger:      logger,
		Authorized:  authorized(cfg.API),
		SettleDelay: time.Duration(cfg.Interview.SettleDelayMS) * time.Millisecond,
	})

	runCtx, runCancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- controller.Run(runCtx) }()

	serverCtx, serverCancel := context.WithCancel(ctx)
	serverDone := make(chan error, 1)
	go func() { serverDone <- ipc.NewServer(controller, logger).Serve(serverCtx, listener) }()

	shutdown := func() int {
		serverCancel()
		runCancel()
		exitCode := 0
		if err := <-runDone; err != nil {
			logger.Warn().Err(err).Msg("interview teardown")
		}
		if err := <-serverDone; err != nil {
			fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
			exitCode = 1
		}
		return exitCode
	}

	interviewType := opts.Type
	if strings.TrimSpace(interviewType) == "" {
		interviewType = cfg.Interview.DefaultType
	}
	req := interview.StartRequest{ResumePath: opts.Resume, JobRole: opts.Role, InterviewType: interviewType}
	if err := controller.Start(ctx, req); err != nil {
		shutdown()
		var verr *interview.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(r.Stderr, "error: %s\n", verr.Error())
			return 2
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	var outcome interview.Outcome
	select {
	case outcome = <-controller.Outcomes():
	case <-ctx.Done():
		exitCode := shutdown()
		logger.Info().Msg("interview cancelled")
		fmt.Fprintln(r.Stdout, "cancelled")
		return exitCode
	}

	exitCode := r.report(ctx, cfg, outcome, logger)
	if code := shutdown(); code != 0 {
		exitCode = code
	}
	return exitCode
}

// report prints the outcome and publishes the feedback report.
func (r Runner) report(ctx context.Context, cfg config.Config, outcome interview.Outcome, logger zerolog.Logger) int {
	logOutcome(logger, outcome)

	if outcome.State != fsm.StateShowingFeedback {
		message := outcome.Message
		if message == "" && outcome.Err != nil {
			message = outcome.Err.Error()
		}
		fmt.Fprintf(r.Stderr, "error: %s\n", message)
		return 1
	}

	if err := feedback.Render(r.Stdout, outcome.Report); err != nil {
		fmt.Fprintf(r.Stderr, "error: render feedback: %v\n", err)
		return 1
	}

	path, err := output.NewPublisher(cfg.Report, logger).Publish(ctx, output.Document{
		SessionID:     outcome.SessionID,
		JobRole:       outcome.JobRole,
		InterviewType: outcome.Type,
		StartedAt:     outcome.StartedAt,
		Questions:     outcome.Questions,
		Answers:       outcome.Answers,
		Report:        outcome.Report,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: save report: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "\nreport saved to %s\n", path)
	return 0
}

func coachConfig(cfg config.Config) coach.Config {
	return coach.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   time.Duration(cfg.API.TimeoutMS) * time.Millisecond,
		Retries:   cfg.API.Retries,
		AuthToken: cfg.API.AuthToken,
	}
}

// authorized gates sessions on a configured token when the service requires one.
func authorized(api config.APIConfig) func() bool {
	return func() bool {
		return !api.RequireAuth || strings.TrimSpace(api.AuthToken) != ""
	}
}

func logOutcome(logger zerolog.Logger, outcome interview.Outcome) {
	event := logger.Info()
	msg := "interview complete"
	if outcome.State != fsm.StateShowingFeedback {
		event = logger.Error().Err(outcome.Err).Str("message", outcome.Message)
		msg = "interview failed"
	}
	event.
		Str("session", outcome.SessionID).
		Str("state", string(outcome.State)).
		Str("role", outcome.JobRole).
		Str("type", outcome.Type).
		Int("questions", len(outcome.Questions)).
		Int("answers", len(outcome.Answers)).
		Time("started_at", outcome.StartedAt).
		Int64("duration_ms", outcome.EndedAt.Sub(outcome.StartedAt).Milliseconds()).
		Msg(msg)
}

func tryForward(ctx context.Context, socketPath string, command ipc.Command) (ipc.Response, bool, error) {
	resp, err := ipc.NewClient(socketPath).Do(ctx, command)
	var refused *ipc.RefusedError
	switch {
	case err == nil:
		return resp, true, nil
	case errors.As(err, &refused):
		return resp, true, err
	case ipc.Unreachable(err):
		return ipc.Response{}, false, nil
	default:
		return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
	}
}

func mark(on bool) string {
	if on {
		return "*"
	}
	return " "
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
