// Package logger provides the levelled logging interface used by the analysis
// and command line layers.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// LogLevel orders messages by severity. A logger prints messages at or above
// its own level.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	// LogError only reports; it never exits the process.
	LogError
)

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "DEBUG"
	case LogInfo:
		return "INFO"
	case LogError:
		return "ERROR"
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLogLevel converts a config string such as "debug" into a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	for _, level := range []LogLevel{LogDebug, LogInfo, LogError} {
		if strings.EqualFold(s, level.String()) {
			return level, nil
		}
	}
	return LogInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger is implemented by everything that accepts levelled log lines.
type Logger interface {
	Printf(level LogLevel, format string, a ...interface{})
	Debugf(format string, a ...interface{})
	Infof(format string, a ...interface{})
	Errorf(format string, a ...interface{})
}

// LevelLogger prefixes each line with its level and drops lines below the
// configured one.
type LevelLogger struct {
	out   *log.Logger
	level LogLevel
}

// NewStdOutLogger returns a LevelLogger writing to stdout.
func NewStdOutLogger(level LogLevel) *LevelLogger {
	return NewWriterLogger(os.Stdout, level)
}

// NewWriterLogger returns a LevelLogger writing to w.
func NewWriterLogger(w io.Writer, level LogLevel) *LevelLogger {
	return &LevelLogger{out: log.New(w, "", log.LstdFlags), level: level}
}

func (l *LevelLogger) Printf(level LogLevel, format string, a ...interface{}) {
	if level < l.level {
		return
	}
	l.out.Printf("%v: %s", level, fmt.Sprintf(format, a...))
}

func (l *LevelLogger) Debugf(format string, a ...interface{}) { l.Printf(LogDebug, format, a...) }
func (l *LevelLogger) Infof(format string, a ...interface{})  { l.Printf(LogInfo, format, a...) }
func (l *LevelLogger) Errorf(format string, a ...interface{}) { l.Printf(LogError, format, a...) }

// SetLogLevel changes the lowest level printed.
func (l *LevelLogger) SetLogLevel(level LogLevel) { l.level = level }

// Discard drops every line. Analyses built without a logger use it.
type Discard struct{}

func (Discard) Printf(LogLevel, string, ...interface{}) {}
func (Discard) Debugf(string, ...interface{})           {}
func (Discard) Infof(string, ...interface{})            {}
func (Discard) Errorf(string, ...interface{})           {}
