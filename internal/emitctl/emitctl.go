// Package emitctl provides the two-tier error-handling machinery shared
// by every converter: accumulated user-visible diagnostics (§7 category
// 1) that let conversion keep going and produce a best-effort partial
// document, versus internal-bug assertions (§7 category 2) that should
// never be reachable on well-typed input and terminate immediately.
package emitctl

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Diagnostic is one user-visible error or warning, reported with the
// component that raised it and, where available, the name of the node
// or declaration involved.
type Diagnostic struct {
	Component string
	Name      string
	Message   string
}

func (d Diagnostic) String() string {
	if d.Name != "" {
		return fmt.Sprintf("%s: %s: %s", d.Component, d.Name, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Component, d.Message)
}

// Sink accumulates user errors and warnings for one conversion. It is
// never shared across conversions; the orchestrator owns exactly one
// instance per ProgramConverter.Convert call.
type Sink struct {
	Log      *logrus.Logger
	errors   []Diagnostic
	warnings []Diagnostic
}

// NewSink creates a Sink backed by the given logger, or a sensible
// default logrus.Logger (text formatter, info level) when log is nil.
func NewSink(log *logrus.Logger) *Sink {
	if log == nil {
		log = logrus.New()
	}
	return &Sink{Log: log}
}

// Error records a user error (§7 category 1). Conversion continues;
// the orchestrator checks Count() at its checkpoints.
func (s *Sink) Error(component, name, format string, args ...any) {
	d := Diagnostic{Component: component, Name: name, Message: fmt.Sprintf(format, args...)}
	s.errors = append(s.errors, d)
	s.Log.WithFields(logrus.Fields{"component": component, "name": name}).Error(d.Message)
}

// Warn records a non-failing warning (§7's Warnings list).
func (s *Sink) Warn(component, name, format string, args ...any) {
	d := Diagnostic{Component: component, Name: name, Message: fmt.Sprintf(format, args...)}
	s.warnings = append(s.warnings, d)
	s.Log.WithFields(logrus.Fields{"component": component, "name": name}).Warn(d.Message)
}

// Count returns the number of accumulated user errors. The orchestrator
// aborts the emit once this is non-zero at one of its checkpoints.
func (s *Sink) Count() int { return len(s.errors) }

func (s *Sink) Errors() []Diagnostic   { return s.errors }
func (s *Sink) Warnings() []Diagnostic { return s.warnings }

// Bug logs and panics: an internal bug (§7 category 2), reachable only
// on malformed input the front end should never have produced.
func Bug(log *logrus.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if log != nil {
		log.WithField("kind", "bug").Error(msg)
	}
	panic("p4c-bm2json: bug: " + msg)
}
