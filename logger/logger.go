// Package logger defines the structured logging port used across the
// checkout library, with a zap-backed implementation, an in-memory capture
// logger for tests, and a noop default.
package logger

import "sync"

type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// NoopLogger discards all log output. It is the default when no logger is
// configured.
type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]any) {}
func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Warn(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}

// Entry is one line recorded by a CaptureLogger.
type Entry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

// CaptureLogger records entries in memory so tests can assert on what a
// component logged. Safe for concurrent use.
type CaptureLogger struct {
	mu      sync.Mutex
	entries []Entry
}

func NewCapture() *CaptureLogger {
	return &CaptureLogger{}
}

func (c *CaptureLogger) Debug(msg string, fields map[string]any) { c.record("debug", msg, fields) }
func (c *CaptureLogger) Info(msg string, fields map[string]any)  { c.record("info", msg, fields) }
func (c *CaptureLogger) Warn(msg string, fields map[string]any)  { c.record("warn", msg, fields) }
func (c *CaptureLogger) Error(msg string, fields map[string]any) { c.record("error", msg, fields) }

func (c *CaptureLogger) record(level, msg string, fields map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, Entry{Level: level, Msg: msg, Fields: fields})
}

// Entries returns a copy of everything recorded so far.
func (c *CaptureLogger) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Contains reports whether an entry with the given level and message was
// recorded.
func (c *CaptureLogger) Contains(level, msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.Level == level && e.Msg == msg {
			return true
		}
	}
	return false
}
