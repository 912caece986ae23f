// Package errmsg provides consistent error formatting for messages returned
// to front-ends.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Command dispatch
	OpDecodeRequest Op = "decode request"
	OpDecodeArgs    Op = "decode command arguments"
	OpDispatch      Op = "run command"

	// Playback sources
	OpSourceConnect Op = "connect to playback source"
	OpSourceRead    Op = "read playback state"

	// Relay
	OpRelayUpdate Op = "relay now playing"
	OpRelayClear  Op = "relay stopped playback"

	// Initialization
	OpLoadConfig Op = "load configuration"
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
