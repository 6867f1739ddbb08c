package logging

import (
	"fmt"
	"testing"
)

// Func is a function that can be used for logging.
type Func func(Level, string, ...interface{})

// Test returns a logging function that forwards messages to the test logger.
func Test(t testing.TB) Func {
	return func(l Level, format string, a ...interface{}) {
		format = fmt.Sprintf("%s: ", l.String()) + format
		t.Logf(format, a...)
	}
}

// Stdout returns a logging function that prints log messages on standard
// output.
func Stdout() Func {
	return func(l Level, format string, a ...interface{}) {
		format = fmt.Sprintf("%s: ", l.String()) + format + "\n"
		fmt.Printf(format, a...)
	}
}

// Discard is a logging function that drops every message.
func Discard(Level, string, ...interface{}) {}
