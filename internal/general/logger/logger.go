package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrorObject is emitted only for error logs.
type ErrorObject struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack"`
}

// LogEntry is the single-line JSON format written to the sink.
type LogEntry struct {
	Timestamp     string       `json:"timestamp"`                 // ISO 8601 timestamp
	Level         string       `json:"level"`                     // DEBUG | INFO | ERROR
	Service       string       `json:"service"`                   // e.g. taxi-agent
	Action        string       `json:"action"`                    // event name, e.g. login_succeeded
	Message       string       `json:"message"`                   // human-readable description
	Hostname      string       `json:"hostname"`                  // process hostname
	RequestID     string       `json:"request_id,omitempty"`      // correlation id
	TaxiRequestID string       `json:"taxi_request_id,omitempty"` // taxi request under processing
	Details       any          `json:"details,omitempty"`
	Error         *ErrorObject `json:"error,omitempty"`
}

type Logger struct {
	service  string
	hostname string
	out      io.Writer
	mu       sync.Mutex
}

// New creates a structured logger for the given service writing to stdout.
func New(service string) *Logger {
	return NewWithWriter(service, os.Stdout)
}

// NewWithWriter creates a structured logger writing JSON lines to w.
func NewWithWriter(service string, w io.Writer) *Logger {
	hn, err := os.Hostname()
	if err != nil || strings.TrimSpace(hn) == "" {
		hn = "unknown-hostname"
	}
	if strings.TrimSpace(service) == "" {
		service = "unknown-service"
	}
	if w == nil {
		w = io.Discard
	}

	return &Logger{service: service, hostname: hn, out: w}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Logger {
	return NewWithWriter("discard", io.Discard)
}

func (l *Logger) emit(e LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := json.Marshal(e)
	if err == nil {
		fmt.Fprintln(l.out, string(b))
		return
	}

	// retry once without Details (common source of marshal errors)
	e.Details = nil
	if b, err := json.Marshal(e); err == nil {
		fmt.Fprintln(l.out, string(b))
		return
	}

	fallback := map[string]any{
		"timestamp": nowISO(),
		"level":     "ERROR",
		"service":   l.service,
		"action":    "logger_marshal_failed",
		"message":   "failed to encode log entry",
		"hostname":  l.hostname,
		"error": ErrorObject{
			Msg:   strings.TrimSpace(err.Error()),
			Stack: string(debug.Stack()),
		},
	}
	if fb, err := json.Marshal(fallback); err == nil {
		fmt.Fprintln(l.out, string(fb))
	} else {
		fmt.Fprintf(os.Stderr, "log marshal failed: %v\n", err)
	}
}

func (l *Logger) entry(ctx context.Context, level, action, msg string, details any) LogEntry {
	return LogEntry{
		Timestamp:     nowISO(),
		Level:         level,
		Service:       l.service,
		Action:        safeAction(action),
		Message:       strings.TrimSpace(msg),
		Hostname:      l.hostname,
		RequestID:     RequestID(ctx),
		TaxiRequestID: TaxiRequestID(ctx),
		Details:       details,
	}
}

// Debug writes a DEBUG line with optional details.
func (l *Logger) Debug(ctx context.Context, action, msg string, details any) {
	l.emit(l.entry(ctx, "DEBUG", action, msg, details))
}

// Info writes an INFO line with optional details.
func (l *Logger) Info(ctx context.Context, action, msg string, details any) {
	l.emit(l.entry(ctx, "INFO", action, msg, details))
}

// Error writes an ERROR line and attaches a stack trace.
func (l *Logger) Error(ctx context.Context, action, msg string, err error, details any) {
	if err == nil {
		err = fmt.Errorf("unknown error")
	}
	e := l.entry(ctx, "ERROR", action, msg, details)
	e.Error = &ErrorObject{
		Msg:   strings.TrimSpace(err.Error()),
		Stack: string(debug.Stack()),
	}
	l.emit(e)
}

type ctxKey string

const (
	ctxKeyRequestID     ctxKey = "taxi_request_id_corr"
	ctxKeyTaxiRequestID ctxKey = "taxi_taxi_request_id"
)

// WithRequestID returns a new context carrying request_id.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if strings.TrimSpace(reqID) == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyRequestID, reqID)
}

// WithNewRequestID attaches a freshly minted request id unless ctx already carries one.
func WithNewRequestID(ctx context.Context) context.Context {
	if RequestID(ctx) != "" {
		return ctx
	}
	return WithRequestID(ctx, "req_"+uuid.NewString())
}

// WithTaxiRequestID returns a new context carrying taxi_request_id.
func WithTaxiRequestID(ctx context.Context, id string) context.Context {
	if strings.TrimSpace(id) == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyTaxiRequestID, id)
}

// RequestID extracts request_id from ctx (if any).
func RequestID(ctx context.Context) string {
	return stringValue(ctx, ctxKeyRequestID)
}

// TaxiRequestID extracts taxi_request_id from ctx (if any).
func TaxiRequestID(ctx context.Context) string {
	return stringValue(ctx, ctxKeyTaxiRequestID)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func safeAction(a string) string {
	a = strings.TrimSpace(a)
	if a == "" {
		return "unspecified"
	}
	return a
}
