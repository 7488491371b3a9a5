// Package tqerrors provides an error type that carries both a technical
// message (for logs) and a human-readable message (for the phrasectl REPL
// operator), so the two can diverge without one side shadowing the other.
package tqerrors

import "fmt"

// replError is an error caused by a REPL command: either the command line
// could not be understood, or it asked for something impossible or not
// allowed right now.
//
// replError includes a human-readable message to show to the operator as
// well as a typical more technical "error message" style message.
type replError struct {
	msg   string
	human string
	wrap  error
}

func (e *replError) Error() string {
	return e.msg
}

// DisplayMessage is the message that should be shown at the REPL to describe
// the error.
func (e *replError) DisplayMessage() string {
	return e.human
}

// Unwrap gives the error that the replError wraps, if it wraps one.
func (e *replError) Unwrap() error {
	return e.wrap
}

// REPL returns a new error that has both the message to show the operator and
// the technical description of the error.
func REPL(display, technical string) error {
	if technical == "" {
		technical = fmt.Sprintf("got replError(%q)", display)
	}
	return &replError{
		msg:   technical,
		human: display,
	}
}

// REPLf returns a new error that has a message to show the operator and an
// automatically generated Error() description. The arguments given are the
// format string and the arguments to the format string.
func REPLf(displayFormat string, a ...interface{}) error {
	display := fmt.Sprintf(displayFormat, a...)
	return REPL(display, "")
}

// WrapREPL returns a new error that has both the message to show the operator
// and the technical description of the error, and that wraps the given
// error.
func WrapREPL(e error, display, technical string) error {
	if technical == "" {
		technical = fmt.Sprintf("got replError(%q)", display)
	}
	return &replError{
		msg:   technical,
		human: display,
		wrap:  e,
	}
}

// WrapREPLf returns a new error that has both the message to show the
// operator and an automatically generated Error() description, and that
// wraps the given error. The arguments given are the error to wrap, then the
// format followed by its arguments.
func WrapREPLf(e error, displayFormat string, a ...interface{}) error {
	display := fmt.Sprintf(displayFormat, a...)
	return WrapREPL(e, display, "")
}

// DisplayMessage gets the message to show at the REPL for the given error.
// If it is one of the types defined in tqerrors, the special display message
// is returned (if it exists). Otherwise, err.Error() is returned.
func DisplayMessage(err error) string {
	if replErr, ok := err.(*replError); ok {
		return replErr.DisplayMessage()
	}
	return err.Error()
}
