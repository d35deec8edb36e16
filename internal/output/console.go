package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/emmett/voxremote/internal/display"
	"github.com/emmett/voxremote/internal/session"
)

// Event types written by ConsoleOutput.
const (
	EventListening = "listening"
	EventStopped   = "stopped"
	EventError     = "error"
)

// ConsoleOutput writes display changes and listening state through a
// Formatter. It is safe for concurrent use.
type ConsoleOutput struct {
	mu        sync.Mutex
	formatter Formatter
	errWriter io.Writer
}

// ConsoleConfig configures console output behavior
type ConsoleConfig struct {
	// Format is "console" for plain lines or "json" for JSON lines
	Format string

	// Writer is the output destination (default: os.Stdout)
	Writer io.Writer

	// ErrWriter receives write failures (default: os.Stderr)
	ErrWriter io.Writer
}

// NewConsoleOutput creates a new console output handler
func NewConsoleOutput(config ConsoleConfig) *ConsoleOutput {
	writer := config.Writer
	if writer == nil {
		writer = os.Stdout
	}
	errWriter := config.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}

	var formatter Formatter
	if config.Format == "json" {
		formatter = NewJSONFormatter(writer)
	} else {
		formatter = NewPlainTextFormatter(writer)
	}

	return &ConsoleOutput{
		formatter: formatter,
		errWriter: errWriter,
	}
}

// DisplayChanged implements display.Observer.
func (c *ConsoleOutput) DisplayChanged(field display.Field, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.check(c.formatter.WriteDisplay(field, value))
}

// ListeningChanged reports the outcome of a start or stop request. A failed
// start is reported with its activation result.
func (c *ConsoleOutput) ListeningChanged(listening bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case err != nil:
		c.check(c.formatter.WriteEvent(EventError, fmt.Sprintf("%s: %v", session.ResultOf(err), err)))
	case listening:
		c.check(c.formatter.WriteEvent(EventListening, "listening for commands"))
	default:
		c.check(c.formatter.WriteEvent(EventStopped, "stopped listening"))
	}
}

// Close flushes and closes the formatter.
func (c *ConsoleOutput) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.formatter.Flush(); err != nil {
		return err
	}
	return c.formatter.Close()
}

func (c *ConsoleOutput) check(err error) {
	if err != nil {
		fmt.Fprintf(c.errWriter, "[ERROR] output: %v\n", err)
	}
}
