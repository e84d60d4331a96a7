package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

type contextKey string

const contextKeyRequestID contextKey = "request_id"

var (
	mu     sync.Mutex
	out    io.Writer = color.Output
	debug  bool
	infoC  = color.New(color.FgWhite, color.BgGreen).SprintFunc()
	warnC  = color.New(color.FgBlack, color.BgYellow).SprintFunc()
	errC   = color.New(color.FgRed).SprintFunc()
	debugC = color.New(color.FgCyan).SprintFunc()
)

// SetOutput redirects all log lines
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetDebug toggles Debug output
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debug = enabled
}

// WithRequestID adds request ID to context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// RequestID retrieves the request ID stored by WithRequestID
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

func formatLog(requestID string, format string, a ...interface{}) string {
	msg := fmt.Sprintf(format, a...)
	if requestID != "" {
		return fmt.Sprintf("[req_id=%s] %s", requestID, msg)
	}
	return msg
}

func write(tag string, msg string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "%s %s\n", tag, msg)
}

// Info log information
func Info(format string, a ...interface{}) {
	write(infoC("[INFO] "), fmt.Sprintf(format, a...))
}

// InfoWithContext logs information with context (includes request ID if available)
func InfoWithContext(ctx context.Context, format string, a ...interface{}) {
	write(infoC("[INFO] "), formatLog(RequestID(ctx), format, a...))
}

// Warn log warning
func Warn(format string, a ...interface{}) {
	write(warnC("[WARN] "), fmt.Sprintf(format, a...))
}

// WarnWithContext logs warning with context (includes request ID if available)
func WarnWithContext(ctx context.Context, format string, a ...interface{}) {
	write(warnC("[WARN] "), formatLog(RequestID(ctx), format, a...))
}

// Error log error
func Error(format string, a ...interface{}) {
	write(errC("[Error]"), fmt.Sprintf(format, a...))
}

// ErrorWithContext logs error with context (includes request ID if available)
func ErrorWithContext(ctx context.Context, format string, a ...interface{}) {
	write(errC("[Error]"), formatLog(RequestID(ctx), format, a...))
}

// Debug logs only when debug output is enabled
func Debug(format string, a ...interface{}) {
	mu.Lock()
	enabled := debug
	mu.Unlock()
	if !enabled {
		return
	}
	write(debugC("[DEBUG]"), fmt.Sprintf(format, a...))
}

// InfoStruct dumps values with their types, useful for request payloads in debug sessions.
func InfoStruct(a ...interface{}) {
	write(infoC("[INFO] "), spew.Sdump(a...))
}
