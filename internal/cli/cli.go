// Package cli parses lectern command lines.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandRecord    Command = "record"
	CommandStop      Command = "stop"
	CommandCancel    Command = "cancel"
	CommandStatus    Command = "status"
	CommandDevices   Command = "devices"
	CommandDoctor    Command = "doctor"
	CommandHistory   Command = "history"
	CommandAnalyze   Command = "analyze"
	CommandScenarios Command = "scenarios"
	CommandCorrect   Command = "correct"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRecord:    {},
	CommandStop:      {},
	CommandCancel:    {},
	CommandStatus:    {},
	CommandDevices:   {},
	CommandDoctor:    {},
	CommandHistory:   {},
	CommandAnalyze:   {},
	CommandScenarios: {},
	CommandCorrect:   {},
	CommandVersion:   {},
	CommandHelp:      {},
}

// aliases keeps the toggle spelling used by desktop keybindings.
var aliases = map[string]Command{
	"toggle": CommandRecord,
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Scenario   string
	Style      string
	ShowHelp   bool

	// history
	Limit     int
	HistoryID string

	// analyze
	File string

	// correct
	SegmentID string
	Text      string
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandRecord}
	var (
		commandSet  bool
		positionals []string
		limitSet    bool
	)

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
			return parsed, nil
		case "--version":
			parsed.Command = CommandVersion
			commandSet = true
		case "--config", "--scenario", "--style", "--limit", "--id", "--file":
			i++
			if i >= len(args) {
				return Parsed{}, fmt.Errorf("%s requires %s", arg, flagValueName(arg))
			}
			value := args[i]
			switch arg {
			case "--config":
				parsed.ConfigPath = value
			case "--scenario":
				parsed.Scenario = value
			case "--style":
				parsed.Style = value
			case "--limit":
				n, err := strconv.Atoi(value)
				if err != nil || n <= 0 {
					return Parsed{}, fmt.Errorf("--limit must be a positive integer, got %q", value)
				}
				parsed.Limit = n
				limitSet = true
			case "--id":
				parsed.HistoryID = value
			case "--file":
				parsed.File = value
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}
			if commandSet {
				positionals = append(positionals, arg)
				continue
			}

			cmd := Command(arg)
			if alias, ok := aliases[arg]; ok {
				cmd = alias
			}
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			commandSet = true
		}
	}

	if err := parsed.bindArguments(positionals, limitSet); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

// bindArguments checks command-specific flags and positionals.
func (p *Parsed) bindArguments(positionals []string, limitSet bool) error {
	if (limitSet || p.HistoryID != "") && p.Command != CommandHistory {
		return fmt.Errorf("--limit and --id are only valid with %q", CommandHistory)
	}
	if p.File != "" && p.Command != CommandAnalyze {
		return fmt.Errorf("--file is only valid with %q", CommandAnalyze)
	}

	switch p.Command {
	case CommandAnalyze:
		if strings.TrimSpace(p.File) == "" {
			return errors.New("analyze requires --file PATH")
		}
	case CommandCorrect:
		if len(positionals) < 2 {
			return errors.New("correct requires a segment id and replacement text")
		}
		p.SegmentID = positionals[0]
		p.Text = strings.Join(positionals[1:], " ")
		return nil
	}

	if len(positionals) > 0 {
		return fmt.Errorf("unexpected arguments after command %q", p.Command)
	}
	return nil
}

func flagValueName(flag string) string {
	switch flag {
	case "--config", "--file":
		return "a path"
	case "--limit":
		return "a number"
	case "--id":
		return "an id"
	default:
		return "a name"
	}
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--scenario NAME] [--style NAME] [command]

Commands:
  record     Start a rehearsal, or stop and analyze the active one (default; alias: toggle)
  stop       Stop the active rehearsal and analyze it
  cancel     Cancel the active rehearsal and discard the recording
  status     Print state, live WPM and transcript
  correct    Replace a transcript segment: correct ID TEXT
  devices    List available input devices
  doctor     Run configuration, microphone and API checks
  history    List saved sessions: history [--limit N] [--id ID]
  analyze    Analyze an existing recording: analyze --file PATH
  scenarios  List rehearsal scenarios and leadership styles
  version    Print version information
  help       Show this help

Flags:
  --config PATH     Config file path (default: $XDG_CONFIG_HOME/lectern/config.jsonc)
  --scenario NAME   Rehearsal scenario key or label
  --style NAME      Leadership style key or label
  -h, --help        Show help
  --version         Show version
`, binaryName)
}
