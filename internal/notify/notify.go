// Package notify carries user-facing notices ("no space for a new cut",
// "export failed", ...) from the editing core to whatever front end is
// attached. Delivery is fire-and-forget.
package notify

import (
	"github.com/rs/zerolog"

	"github.com/kikiluvv/trimline/internal/logging"
)

// Severity classifies a notice.
type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notifier receives notices.
type Notifier interface {
	Notify(message string, severity Severity)
}

// Func adapts a function to Notifier.
type Func func(message string, severity Severity)

// Notify calls f.
func (f Func) Notify(message string, severity Severity) {
	f(message, severity)
}

// Discard drops every notice.
var Discard Notifier = Func(func(string, Severity) {})

// Log writes notices to a zerolog logger at a level matching the severity.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a Log notifier.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logging.WithComponent(logger, "notify")}
}

// Notify implements Notifier.
func (l *Log) Notify(message string, severity Severity) {
	var ev *zerolog.Event
	switch severity {
	case Warning:
		ev = l.logger.Warn()
	case Error:
		ev = l.logger.Error()
	default:
		ev = l.logger.Info()
	}
	ev.Str("severity", severity.String()).Msg(message)
}

type multi []Notifier

// Multi fans a notice out to every non-nil notifier.
func Multi(notifiers ...Notifier) Notifier {
	var out multi
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multi) Notify(message string, severity Severity) {
	for _, n := range m {
		n.Notify(message, severity)
	}
}

// OrDiscard returns n, or Discard when n is nil.
func OrDiscard(n Notifier) Notifier {
	if n == nil {
		return Discard
	}
	return n
}
