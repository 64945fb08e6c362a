package core

// Logger is any service that can log leveled messages along with arbitrary
// context args (errors, maps, the acting user...).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// NoopLogger discards all messages; used in tests.
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (l *NoopLogger) Enable(bool)                  {}
func (l *NoopLogger) Debug(string, ...interface{}) {}
func (l *NoopLogger) Info(string, ...interface{})  {}
func (l *NoopLogger) Warn(string, ...interface{})  {}
func (l *NoopLogger) Error(string, ...interface{}) {}
func (l *NoopLogger) Fatal(string, ...interface{}) {}
