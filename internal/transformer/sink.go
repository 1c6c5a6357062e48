package transformer

import (
	"fareetl/internal/fare"
	"fareetl/internal/logger"
)

// DiagnosticSink receives rows dropped during cleaning. index is the row's
// position in the raw input; offending holds the non-empty flight-number
// values of the row after canonicalization.
type DiagnosticSink interface {
	InvalidRow(supplier fare.Supplier, index int, offending map[string]string)
}

// SinkFunc adapts a function to DiagnosticSink.
type SinkFunc func(supplier fare.Supplier, index int, offending map[string]string)

func (f SinkFunc) InvalidRow(s fare.Supplier, index int, offending map[string]string) {
	f(s, index, offending)
}

// LogSink reports each dropped row as a warning.
type LogSink struct{ Log logger.Logger }

func (s LogSink) InvalidRow(supplier fare.Supplier, index int, offending map[string]string) {
	l := s.Log
	if l == nil {
		l = logger.Default()
	}
	l.Warn("dropping row with invalid flight number",
		"supplier", supplier, "index", index, "fields", offending)
}

type discardSink struct{}

func (discardSink) InvalidRow(fare.Supplier, int, map[string]string) {}
