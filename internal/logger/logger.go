// Package logger writes one JSON object per log line.
//
// Call Init once at startup with the service name. Request handlers put the
// request id into the context with WithRequestID and every entry logged with
// that context carries it.
package logger

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

type Logger struct {
	serviceName string
	mu          sync.Mutex
	out         io.Writer
}

type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Service   string    `json:"service"`
	RequestID string    `json:"request_id,omitempty"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
	Fields    Fields    `json:"fields,omitempty"`
}

type Fields map[string]any

type contextKey string

const RequestIDKey contextKey = "request_id"

var defaultLogger *Logger

// Init installs the default logger writing to stdout.
func Init(serviceName string) {
	defaultLogger = &Logger{serviceName: serviceName, out: os.Stdout}
}

// SetOutput redirects the default logger. Used by tests.
func SetOutput(w io.Writer) {
	if defaultLogger == nil {
		Init("stamppdf")
	}
	defaultLogger.mu.Lock()
	defaultLogger.out = w
	defaultLogger.mu.Unlock()
}

func (l *Logger) log(level string, ctx context.Context, message string, err error, fields Fields) {
	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Service:   l.serviceName,
		Message:   message,
		Fields:    fields,
	}
	if ctx != nil {
		if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
			entry.RequestID = requestID
		}
	}
	if err != nil {
		entry.Error = err.Error()
	}

	jsonData, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		log.Printf("JSON marshal error: %v, original message: %s", marshalErr, message)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(append(jsonData, '\n'))
}

func emit(level string, ctx context.Context, message string, err error, fields []Fields) {
	if defaultLogger == nil {
		if err != nil {
			log.Printf("%s: %s, error: %v", level, message, err)
		} else {
			log.Printf("%s: %s", level, message)
		}
		return
	}
	var f Fields
	if len(fields) > 0 {
		f = fields[0]
	}
	defaultLogger.log(level, ctx, message, err, f)
}

func Info(ctx context.Context, message string, fields ...Fields) {
	emit("info", ctx, message, nil, fields)
}

func Error(ctx context.Context, message string, err error, fields ...Fields) {
	emit("error", ctx, message, err, fields)
}

func Warn(ctx context.Context, message string, fields ...Fields) {
	emit("warn", ctx, message, nil, fields)
}

func Debug(ctx context.Context, message string, fields ...Fields) {
	emit("debug", ctx, message, nil, fields)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}
