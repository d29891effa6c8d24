package parser

import "fmt"

type ParserError struct {
	message  string
	location [4]int
}

var _ error = (*ParserError)(nil)

// NewParserError creates an error for the given source range
// (start line, start column, end line, end column). Lines are 1-based.
func NewParserError(msg string, location [4]int) ParserError {
	return ParserError{
		message:  msg,
		location: location,
	}
}

func (e ParserError) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.message, e.location[0], e.location[1])
}

func (e ParserError) Message() string { return e.message }

func (e ParserError) Location() [4]int { return e.location }

// Shift moves the error by the given number of lines.
func (e ParserError) Shift(lines int) ParserError {
	e.location[0] += lines
	e.location[2] += lines
	return e
}
