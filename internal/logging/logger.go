package logging

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity levels.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a LOG_LEVEL value to a Level. Unknown values yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Fields carries structured context attached to a log entry.
type Fields map[string]interface{}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
}

// Logger provides structured JSON logging. Loggers derived with WithFields
// share the parent's writer and lock.
type Logger struct {
	mu     *sync.Mutex
	output io.Writer
	level  Level
	fields Fields
	now    func() time.Time
}

// New creates a new Logger writing to stdout at info level.
func New() *Logger {
	return &Logger{
		mu:     &sync.Mutex{},
		output: os.Stdout,
		level:  LevelInfo,
		fields: Fields{},
		now:    time.Now,
	}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return New().SetOutput(io.Discard).SetLevel(LevelError + 1)
}

// SetOutput sets the output writer for the logger.
func (l *Logger) SetOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
	return l
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
	return l
}

// WithField returns a new logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Fields{key: value})
}

// WithFields returns a new logger with additional fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	newFields := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		mu:     l.mu,
		output: l.output,
		level:  l.level,
		fields: newFields,
		now:    l.now,
	}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.log(LevelDebug, msg, fields...)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.log(LevelInfo, msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.log(LevelWarn, msg, fields...)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.log(LevelError, msg, fields...)
}

func (l *Logger) log(level Level, msg string, additionalFields ...Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	allFields := make(Fields, len(l.fields))
	for k, v := range l.fields {
		allFields[k] = v
	}
	for _, f := range additionalFields {
		for k, v := range f {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			allFields[k] = v
		}
	}

	entry := LogEntry{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
	}
	if len(allFields) > 0 {
		entry.Fields = allFields
	}

	data, err := json.Marshal(entry)
	if err != nil {
		_, _ = l.output.Write([]byte(entry.Timestamp + " " + entry.Level + " " + msg + "\n"))
		return
	}
	_, _ = l.output.Write(append(data, '\n'))
}

// Default is the default logger instance.
var Default = New()

// SetDefaultLevel sets the level for the default logger.
func SetDefaultLevel(level Level) {
	Default.SetLevel(level)
}

func Debug(msg string, fields ...Fields) {
	Default.Debug(msg, fields...)
}

func Info(msg string, fields ...Fields) {
	Default.Info(msg, fields...)
}

func Warn(msg string, fields ...Fields) {
	Default.Warn(msg, fields...)
}

func Error(msg string, fields ...Fields) {
	Default.Error(msg, fields...)
}
