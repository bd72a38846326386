// Package cli parses seline's command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandChat    Command = "chat"
	CommandToggle  Command = "toggle"
	CommandAsk     Command = "ask"
	CommandStop    Command = "stop"
	CommandCancel  Command = "cancel"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandChat:    {},
	CommandToggle:  {},
	CommandAsk:     {},
	CommandStop:    {},
	CommandCancel:  {},
	CommandStatus:  {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// Parsed is one parsed invocation. Query is set for ask.
type Parsed struct {
	Command    Command
	ConfigPath string
	Query      string
	ShowHelp   bool
}

// Parse reads flags, then a command. Everything after ask is the query.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			rest := args[i+1:]
			if cmd == CommandAsk {
				parsed.Query = strings.TrimSpace(strings.Join(rest, " "))
				if parsed.Query == "" {
					return Parsed{}, errors.New("ask requires a question")
				}
				return parsed, nil
			}
			if len(rest) > 0 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  chat          Open the voice session in the terminal
  toggle        Start recording, or stop and answer when already recording
  ask TEXT...   Ask a typed question and print the answer
  stop          Stop speaking (or finish the recording of a one-shot toggle)
  cancel        Stop recording, answering, and speaking
  status        Print current state
  devices       List audio input and output devices
  doctor        Run configuration and environment checks
  version       Print version information
  help          Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/seline/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
