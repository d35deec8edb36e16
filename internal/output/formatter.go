package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/emmett/voxremote/internal/display"
)

// DisplayEvent is a change of one displayed field.
type DisplayEvent struct {
	Type      string    `json:"type"`
	Field     string    `json:"field"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Event represents a system event
type Event struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Formatter is the interface for output formatters
type Formatter interface {
	// WriteDisplay writes a display field change
	WriteDisplay(field display.Field, value string) error

	// WriteEvent writes a system event (listening state, activation errors)
	WriteEvent(eventType, message string) error

	// Flush ensures all buffered output is written
	Flush() error

	// Close closes the formatter and releases resources
	Close() error
}

// JSONFormatter writes one JSON object per line
type JSONFormatter struct {
	encoder *json.Encoder
	now     func() time.Time
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(writer io.Writer) *JSONFormatter {
	return &JSONFormatter{
		encoder: json.NewEncoder(writer),
		now:     time.Now,
	}
}

// WriteDisplay writes every change, including clears, so a consumer can
// mirror the display exactly.
func (j *JSONFormatter) WriteDisplay(field display.Field, value string) error {
	return j.encoder.Encode(DisplayEvent{
		Type:      "display",
		Field:     field.String(),
		Value:     value,
		Timestamp: j.now(),
	})
}

// WriteEvent writes a system event
func (j *JSONFormatter) WriteEvent(eventType, message string) error {
	return j.encoder.Encode(Event{
		Type:      eventType,
		Message:   message,
		Timestamp: j.now(),
	})
}

// Flush ensures all buffered output is written
func (j *JSONFormatter) Flush() error {
	// JSON encoder writes immediately, nothing to flush
	return nil
}

// Close closes the formatter
func (j *JSONFormatter) Close() error {
	return nil
}

// PlainTextFormatter outputs display changes as timestamped lines
type PlainTextFormatter struct {
	writer io.Writer
	now    func() time.Time
}

// NewPlainTextFormatter creates a new plain text formatter
func NewPlainTextFormatter(writer io.Writer) *PlainTextFormatter {
	return &PlainTextFormatter{
		writer: writer,
		now:    time.Now,
	}
}

var plainLabels = map[display.Field]string{
	display.Recognized:     "Recognized",
	display.Rejected:       "Not understood",
	display.PlaybackStatus: "Now playing",
}

// WriteDisplay writes a field change. Clears are not written.
func (p *PlainTextFormatter) WriteDisplay(field display.Field, value string) error {
	if value == "" {
		return nil
	}
	timestamp := p.now().Format("15:04:05")
	_, err := fmt.Fprintf(p.writer, "[%s] %s: %s\n", timestamp, plainLabels[field], value)
	return err
}

// WriteEvent writes a system event
func (p *PlainTextFormatter) WriteEvent(eventType, message string) error {
	timestamp := p.now().Format("15:04:05")
	_, err := fmt.Fprintf(p.writer, "[%s] [%s] %s\n", timestamp, eventType, message)
	return err
}

// Flush ensures all buffered output is written
func (p *PlainTextFormatter) Flush() error {
	return nil
}

// Close closes the formatter
func (p *PlainTextFormatter) Close() error {
	return nil
}
