package bot

import "strings"

// CommandKind identifies a chat command.
type CommandKind string

const (
	CommandInvalid CommandKind = "invalid"
	CommandAdd     CommandKind = "add"
	CommandRemove  CommandKind = "remove"
)

// Command is a parsed chat command. Filter and Destination are empty when
// the corresponding argument was not given.
type Command struct {
	Kind        CommandKind
	Filter      string
	Destination string
}

// ParseCommand splits text on whitespace and recognises "/add" and
// "/remove" by prefix, so "/addx" counts as "/add". Arguments past the
// destination are ignored.
func ParseCommand(text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Command{Kind: CommandInvalid}
	}

	var cmd Command
	switch {
	case strings.HasPrefix(fields[0], "/add"):
		cmd.Kind = CommandAdd
	case strings.HasPrefix(fields[0], "/remove"):
		cmd.Kind = CommandRemove
	default:
		return Command{Kind: CommandInvalid}
	}

	if len(fields) > 1 {
		cmd.Filter = fields[1]
	}
	if len(fields) > 2 {
		cmd.Destination = fields[2]
	}
	return cmd
}
