// Package logging wraps logrus with the formatter and rotation used across signify.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger = newLogger(os.Stderr, logrus.InfoLevel)
	mu     sync.RWMutex
)

// Fields is an alias so callers don't import logrus directly.
type Fields = logrus.Fields

// Options controls logger output.
type Options struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// File, when set, adds a rotating log file next to stderr.
	File string
	// NoColors disables ANSI colors (useful when stderr is not a terminal).
	NoColors bool
}

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(out)
	l.SetFormatter(&formatter.Formatter{
		TimestampFormat: "02 Jan 06 - 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})
	return l
}

// Init replaces the package logger according to opts.
func Init(opts Options) *logrus.Logger {
	level, err := logrus.ParseLevel(opts.Level)
	if opts.Level == "" || err != nil {
		level = logrus.InfoLevel
	}

	writers := []io.Writer{os.Stderr}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    50,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}

	l := newLogger(io.MultiWriter(writers...), level)
	if f, ok := l.Formatter.(*formatter.Formatter); ok {
		f.NoColors = opts.NoColors
	}
	l.SetReportCaller(true)

	mu.Lock()
	logger = l
	mu.Unlock()

	if err != nil && opts.Level != "" {
		l.WithField("level", opts.Level).Warn("unknown log level, using info")
	}
	return l
}

// SetOutput redirects the package logger. Tests use it to capture output.
func SetOutput(w io.Writer) {
	mu.RLock()
	defer mu.RUnlock()
	logger.SetOutput(w)
}

// Logger returns the package logger.
func Logger() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func entry(fields Fields) *logrus.Entry {
	if fields == nil {
		fields = Fields{}
	}
	return Logger().WithFields(fields)
}

func Debug(fields Fields, msg string) { entry(fields).Debug(msg) }

func Info(fields Fields, msg string) { entry(fields).Info(msg) }

func Warn(fields Fields, msg string) { entry(fields).Warn(msg) }

func Error(fields Fields, msg string) { entry(fields).Error(msg) }
