// Package domain holds the adapter's state machine, configuration model
// and error taxonomy.
package domain

import (
	"errors"
	"fmt"
)

var (
	// State errors
	ErrNotConfigured       = errors.New("Snapyr SDK has not yet been configured. Call `configure()` before using this method.")
	ErrAlreadyConfigured   = errors.New("Snapyr SDK is already configured. Call `reset()` before configuring again.")
	ErrConfigureInProgress = errors.New("Snapyr SDK configuration is already in progress")
	ErrNotReplayable       = errors.New("lifecycle replay requires a configured SDK that has not replayed yet")

	// Option errors
	ErrInvalidOption = errors.New("invalid option")

	// Command errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrCommandPanicked = errors.New("command panicked")
)

// ErrorKind classifies a command failure.
type ErrorKind string

const (
	KindNotConfigured ErrorKind = "not_configured"
	KindConfiguration ErrorKind = "configuration"
	KindInvalidOption ErrorKind = "invalid_option"
	KindExecution     ErrorKind = "execution"
)

// CommandError is the rejection value of a host command.
type CommandError struct {
	Command string
	Kind    ErrorKind
	Err     error
}

func (e *CommandError) Error() string {
	return "Error on " + e.Command + ": " + e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, kind ErrorKind, err error) *CommandError {
	return &CommandError{
		Command: command,
		Kind:    kind,
		Err:     err,
	}
}

// KindOf returns the kind of err, or "" when err is not a CommandError.
func KindOf(err error) ErrorKind {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Kind
	}
	return ""
}

// InvalidOptionError reports an unrecognized configure option value.
// It is logged and ignored, never returned to the host.
type InvalidOptionError struct {
	Option string
	Value  any
	Err    error
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid value %v for option %s: %v", e.Value, e.Option, e.Err)
}

func (e *InvalidOptionError) Unwrap() error {
	return e.Err
}

// PanicError carries a value recovered from a panicking SDK call.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrCommandPanicked, e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return errors.Join(ErrCommandPanicked, err)
	}
	return ErrCommandPanicked
}
