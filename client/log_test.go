package client

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

type writeCheck bool

func (w *writeCheck) Write(in []byte) (int, error) {
	*w = true
	return len(in), nil
}

func TestNewLogFunc(t *testing.T) {
	// first with nil to exercise the stdout assignment
	logger := NewLogFunc(LogError, "", nil)

	// now verify levels are respected
	w := new(writeCheck)
	logger = NewLogFunc(LogError, "", w)
	logger(LogDebug, "hello")
	if *w {
		t.Fatal("log level ignored")
	}
	logger(LogError, "hello")
	if !*w {
		t.Fatal("log level did not print")
	}
}

func TestNewLogFunc_Format(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogFunc(LogInfo, "nimbus: ", buf)
	logger(LogWarn, "seed %s: %v", "h1", "connection refused")
	assert.Equal(t, "[WARN] nimbus: seed h1: connection refused\n", buf.String())
}

func TestLoggingWriter(t *testing.T) {
	// now verify levels are respected
	w := new(writeCheck)
	log.SetOutput(w)
	defer log.SetOutput(os.Stderr)

	logger := NewLogFunc(LogError, "", NewLoggingWriter())
	logger(LogDebug, "hello")
	if *w {
		t.Fatal("log level ignored")
	}
	logger(LogError, "hello")
	if !*w {
		t.Fatal("log level did not print")
	}
}

func TestNewLogLevel(t *testing.T) {
	l, err := NewLogLevel("debug")
	assert.NoError(t, err)
	assert.Equal(t, l, LogDebug)

	l, err = NewLogLevel("info")
	assert.NoError(t, err)
	assert.Equal(t, l, LogInfo)

	l, err = NewLogLevel("warn")
	assert.NoError(t, err)
	assert.Equal(t, l, LogWarn)

	l, err = NewLogLevel("error")
	assert.NoError(t, err)
	assert.Equal(t, l, LogError)

	_, err = NewLogLevel("invalid")
	assert.Error(t, err)
}

func TestNewLogFunc_None(t *testing.T) {
	w := new(writeCheck)
	logger := NewLogFunc(LogNone, "", w)
	logger(LogError, "hello")
	assert.False(t, bool(*w))
}
