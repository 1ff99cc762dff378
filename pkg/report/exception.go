package report

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ExceptionFormatter renders a step exception as a multi-line error
// message.
type ExceptionFormatter func(*Exception) string

// FormatException is the default ExceptionFormatter. It prints
// "Name: Message" followed by the stack text, without repeating the header
// when the stack already starts with it.
func FormatException(e *Exception) string {
	if e == nil {
		return ""
	}

	header := e.Name
	switch {
	case header == "":
		header = e.Message
	case e.Message != "":
		header += ": " + e.Message
	}

	stack := strings.TrimRight(e.Stack, "\n")
	switch {
	case stack == "":
		return header
	case header == "" || strings.HasPrefix(stack, header):
		return stack
	default:
		return header + "\n" + stack
	}
}

// formatSafely runs a user supplied formatter. A panicking formatter must
// not lose the step, so the raw exception text is used instead.
func formatSafely(format ExceptionFormatter, e *Exception, logger zerolog.Logger) (message string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn().
				Str("exception", e.Name).
				Str("panic", fmt.Sprint(r)).
				Msg("exception formatter failed, using raw message")
			message = FormatException(e)
		}
	}()
	return format(e)
}
