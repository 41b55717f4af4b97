// Package index implements the exporter adapter protocol: a uniform command
// entry point over per-index payload builders, in single-document and bulk
// variants, with a retrying HTTP exchange against the index CRUD API.
package index

// Command selects the adapter operation. The set is closed; adapters check it
// exhaustively at construction so an unknown command can never reach the
// exchange code.
type Command string

const (
	CommandExport Command = "export"
	CommandUpdate Command = "update"
	CommandGet    Command = "get"
	CommandDelete Command = "delete"
)

// ParseCommand validates a command name.
func ParseCommand(s string) (Command, error) {
	switch c := Command(s); c {
	case CommandExport, CommandUpdate, CommandGet, CommandDelete:
		return c, nil
	default:
		return "", &InitError{Err: ErrInvalidCommand, Value: s}
	}
}

// SupportsBulk reports whether the command exists in the bulk variant.
// Only export and delete have bulk endpoints.
func (c Command) SupportsBulk() bool {
	return c == CommandExport || c == CommandDelete
}
