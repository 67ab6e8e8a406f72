// Package notify carries user-facing, non-error notices such as "generation
// started" or "nothing to export". Notices never alter control flow.
package notify

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notifier receives informational notices.
type Notifier interface {
	Info(message string)
	Warning(message string)
}

// Notice is a single recorded notification.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Log writes notices to a zap logger.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Info(message string) {
	l.logger.Info(message, zap.String("kind", "notice"))
}

func (l *Log) Warning(message string) {
	l.logger.Warn(message, zap.String("kind", "notice"))
}

// Recorder keeps notices in memory so they can be returned to a caller.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Info(message string) {
	r.add(LevelInfo, message)
}

func (r *Recorder) Warning(message string) {
	r.add(LevelWarning, message)
}

func (r *Recorder) add(level Level, message string) {
	r.mu.Lock()
	r.notices = append(r.notices, Notice{Level: level, Message: message})
	r.mu.Unlock()
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Discard drops every notice.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Info(string)    {}
func (discard) Warning(string) {}

// Multi fans a notice out to several notifiers.
func Multi(notifiers ...Notifier) Notifier {
	return multi(notifiers)
}

type multi []Notifier

func (m multi) Info(message string) {
	for _, n := range m {
		n.Info(message)
	}
}

func (m multi) Warning(message string) {
	for _, n := range m {
		n.Warning(message)
	}
}

// Writer prints notices as plain lines, for terminal use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (n *Writer) Info(message string) {
	n.write(LevelInfo, message)
}

func (n *Writer) Warning(message string) {
	n.write(LevelWarning, message)
}

func (n *Writer) write(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "[%s] %s\n", level, message)
}
