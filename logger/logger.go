// Package logger defines the minimal structured logging surface the engine
// depends on, plus ready-made implementations. Keyvals are alternating
// key/value pairs, which keeps the interface trivial to mock in tests.
package logger

type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// NullLogger discards everything. Tests use it to keep output quiet.
type NullLogger struct{}

func NewNullLogger() *NullLogger { return &NullLogger{} }

func (NullLogger) Debug(string, ...any) {}
func (NullLogger) Info(string, ...any)  {}
func (NullLogger) Error(string, ...any) {}
