package config

import "fmt"

// ErrorKind classifies configuration failures.
type ErrorKind string

const (
	// ErrUnreadable means a configuration file could not be read.
	ErrUnreadable ErrorKind = "unreadable"
	// ErrParse means a configuration file was not valid YAML.
	ErrParse ErrorKind = "parse"
	// ErrCycle means the extends graph references a document already on
	// the active resolution path.
	ErrCycle ErrorKind = "cycle"
	// ErrMissingField means a required field is absent after resolution.
	ErrMissingField ErrorKind = "missing_field"
)

// Error is a fatal configuration error. No container is created once one
// of these is returned.
type Error struct {
	Kind ErrorKind
	Path string // file the error was detected in, if any
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %s: %s", e.Kind, e.Path, e.Msg)
	}
	return fmt.Sprintf("config %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }
