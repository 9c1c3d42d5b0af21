package safedrive

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel mirrors the levels eventloop's own logging facade uses, kept
// deliberately small rather than importing a generic leveled-logging API.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// LogEntry is one structured log record. Fields is a flat map so a Logger
// implementation can decide how to render it without this package taking a
// dependency on any particular field-builder API.
type LogEntry struct {
	Level   LogLevel
	Message string
	Fields  map[string]any
	Time    time.Time
}

// Logger is the seam between this package's internals and whatever
// structured-logging sink an application wants. It deliberately has two
// methods, matching eventloop's own logging facade.
type Logger interface {
	Log(entry LogEntry)
	Enabled(level LogLevel) bool
}

type noopLogger struct{}

func (noopLogger) Log(LogEntry)          {}
func (noopLogger) Enabled(LogLevel) bool { return false }

// NewNoOpLogger returns a Logger that discards everything. It is the
// process-wide default until SetLogger is called.
func NewNoOpLogger() Logger { return noopLogger{} }

var globalLogger = struct {
	sync.RWMutex
	logger Logger
}{logger: NewNoOpLogger()}

// SetLogger installs the process-wide default Logger. Passing nil restores
// the no-op logger.
func SetLogger(logger Logger) {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	globalLogger.Lock()
	globalLogger.logger = logger
	globalLogger.Unlock()
}

func currentLogger() Logger {
	globalLogger.RLock()
	defer globalLogger.RUnlock()
	return globalLogger.logger
}

func logf(level LogLevel, msg string, fields map[string]any) {
	l := currentLogger()
	if !l.Enabled(level) {
		return
	}
	l.Log(LogEntry{Level: level, Message: msg, Fields: fields, Time: time.Now()})
}

// zerologLogger adapts Logger onto github.com/rs/zerolog, the structured
// logger the rest of the pack reaches for. It is the shipped non-no-op
// default, but applications remain free to implement Logger themselves.
type zerologLogger struct {
	z     zerolog.Logger
	level LogLevel
}

// NewZerologLogger builds a Logger backed by zerolog, writing to w (os.Stderr
// if nil) at or above minLevel.
func NewZerologLogger(w *os.File, minLevel LogLevel) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &zerologLogger{z: zerolog.New(w).With().Timestamp().Logger(), level: minLevel}
}

func (z *zerologLogger) Enabled(level LogLevel) bool { return level >= z.level }

func (z *zerologLogger) Log(entry LogEntry) {
	var ev *zerolog.Event
	switch entry.Level {
	case LevelDebug:
		ev = z.z.Debug()
	case LevelInfo:
		ev = z.z.Info()
	case LevelWarn:
		ev = z.z.Warn()
	case LevelError:
		ev = z.z.Error()
	default:
		ev = z.z.Info()
	}
	for k, v := range entry.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(entry.Message)
}
