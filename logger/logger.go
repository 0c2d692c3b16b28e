// Package logger is the leveled console/file logger used across vidframe.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// String returns the upper-case level name.
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config value (debug, info, warn, error) to a LogLevel.
// Unknown values fall back to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

type Logger struct {
	loggers   [4]*log.Logger
	plain     [4]*log.Logger
	file      *os.File
	console   io.Writer
	plainSink io.Writer
	minLevel  LogLevel
}

var (
	defaultLogger *Logger
	once          sync.Once
	mu            sync.Mutex
)

func ensureInitialized() {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if defaultLogger == nil {
			defaultLogger = &Logger{console: os.Stdout, minLevel: INFO}
			defaultLogger.setupLoggers()
		}
	})
}

// Init configures the package logger. If filename is empty, logs go only to
// the console; if console is false, logs go only to the file.
func Init(filename string, console bool, level LogLevel) error {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
	}

	l := &Logger{minLevel: level}

	if filename != "" {
		file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		l.file = file
		l.plainSink = file
	}

	if console {
		l.console = os.Stdout
	}

	if l.plainSink == nil && l.console == nil {
		return fmt.Errorf("no output destination specified")
	}

	l.setupLoggers()
	defaultLogger = l
	once.Do(func() {})
	return nil
}

// SetOutput sends uncolored output to w only. Tests use it to capture logs.
func SetOutput(w io.Writer, level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	l := &Logger{plainSink: w, minLevel: level}
	l.setupLoggers()
	defaultLogger = l
	once.Do(func() {})
}

// SetLevel sets the minimum log level.
func SetLevel(level LogLevel) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.minLevel = level
}

func (l *Logger) setupLoggers() {
	flags := log.Ldate | log.Ltime | log.Lshortfile
	colors := [4]string{colorGray, colorReset, colorYellow, colorRed}
	tags := [4]string{"[DEBUG] ", "[INFO]  ", "[WARN]  ", "[ERROR] "}

	for lvl := DEBUG; lvl <= ERROR; lvl++ {
		if l.console != nil {
			l.loggers[lvl] = log.New(l.console, colors[lvl]+tags[lvl]+colorReset, flags)
		}
		if l.plainSink != nil {
			l.plain[lvl] = log.New(l.plainSink, tags[lvl], flags)
		}
	}
}

// Close closes the log file if one is open.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
		defaultLogger.file = nil
		defaultLogger.plainSink = nil
		defaultLogger.plain = [4]*log.Logger{}
	}
}

func (l *Logger) output(level LogLevel, msg string) {
	if level < l.minLevel {
		return
	}
	if c := l.loggers[level]; c != nil {
		c.Output(4, msg)
	}
	if p := l.plain[level]; p != nil {
		p.Output(4, msg)
	}
}

// emit holds mu while writing so Close cannot swap sinks mid-line.
func emit(level LogLevel, msg string) {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	defaultLogger.output(level, msg)
}

// Debug logs a debug message
func Debug(v ...interface{}) { emit(DEBUG, fmt.Sprint(v...)) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) { emit(DEBUG, fmt.Sprintf(format, v...)) }

// Info logs an info message
func Info(v ...interface{}) { emit(INFO, fmt.Sprint(v...)) }

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) { emit(INFO, fmt.Sprintf(format, v...)) }

// Warn logs a warning message
func Warn(v ...interface{}) { emit(WARN, fmt.Sprint(v...)) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) { emit(WARN, fmt.Sprintf(format, v...)) }

// Error logs an error message
func Error(v ...interface{}) { emit(ERROR, fmt.Sprint(v...)) }

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) { emit(ERROR, fmt.Sprintf(format, v...)) }

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) {
	emit(ERROR, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) {
	emit(ERROR, fmt.Sprintf(format, v...))
	os.Exit(1)
}
