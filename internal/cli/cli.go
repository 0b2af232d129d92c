// Package cli parses mockinterview command lines into a dispatchable form.
package cli

import (
	"io"

	"github.com/spf13/cobra"
)

type Command string

const (
	CommandStart   Command = "start"
	CommandStop    Command = "stop"
	CommandReset   Command = "reset"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandVoices  Command = "voices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// StartOptions carries the interview inputs given to start.
type StartOptions struct {
	Resume string
	Role   string
	Type   string
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	Start      StartOptions
}

// Parse resolves args against the command tree without running anything.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	root := newRoot(&parsed)
	if args == nil {
		args = []string{}
	}
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

// HelpText renders root usage for binaryName.
func HelpText(binaryName string) string {
	root := newRoot(&Parsed{})
	root.Use = binaryName
	return root.UsageString()
}

func newRoot(parsed *Parsed) *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:           "mockinterview",
		Short:         "Voice mock interviews against a remote interview coach",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, _ []string) error {
			if showVersion {
				parsed.Command = CommandVersion
				parsed.ShowHelp = false
			}
			return nil
		},
	}
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&parsed.ConfigPath, "config", "", "Config file path (default: $XDG_CONFIG_HOME/mockinterview/config.jsonc)")
	root.Flags().BoolVar(&showVersion, "version", false, "Show version")

	start := leaf(parsed, CommandStart, "Start an interview and run it until feedback is shown")
	start.Flags().StringVar(&parsed.Start.Resume, "resume", "", "Path to the resume file to upload")
	start.Flags().StringVar(&parsed.Start.Role, "role", "", "Job role to interview for")
	start.Flags().StringVar(&parsed.Start.Type, "type", "", "Interview type: HR, Technical or Both (default: interview.default_type)")

	root.AddCommand(
		start,
		leaf(parsed, CommandStop, "Stop recording and request feedback for the running interview"),
		leaf(parsed, CommandReset, "Dismiss feedback or an error and return to idle"),
		leaf(parsed, CommandStatus, "Print the running interview state"),
		leaf(parsed, CommandDevices, "List audio input and output devices"),
		leaf(parsed, CommandVoices, "List installed synthesizer voices"),
		leaf(parsed, CommandDoctor, "Run configuration and environment checks"),
		leaf(parsed, CommandVersion, "Print version information"),
	)
	return root
}

func leaf(parsed *Parsed, command Command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(command),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			parsed.Command = command
			parsed.ShowHelp = false
			return nil
		},
	}
}
