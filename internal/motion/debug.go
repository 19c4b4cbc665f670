package motion

import (
	"io"
	"log"
	"sync"
)

// LogWriters routes the motion log streams:
//
//   - Ops: lifecycle events a host operator should see, such as clips the
//     corpus builder skipped, artifacts that failed to decode and library
//     migrations.
//   - Diag: corpus and index statistics and the reason behind every
//     re-match.
//   - Trace: one line per player frame. Verbose; enable for short runs.
//
// A nil writer turns its stream off.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

type stream int

const (
	opsStream stream = iota
	diagStream
	traceStream
	numStreams
)

const logPrefix = "[motion] "

var (
	mu      sync.RWMutex
	loggers [numStreams]*log.Logger
)

// SetLogWriters replaces every stream's destination. Call it once at host
// start-up; it is safe to call while players are running.
func SetLogWriters(w LogWriters) {
	next := [numStreams]*log.Logger{
		opsStream:   newLogger(w.Ops),
		diagStream:  newLogger(w.Diag),
		traceStream: newLogger(w.Trace),
	}
	mu.Lock()
	loggers = next
	mu.Unlock()
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, logPrefix, log.LstdFlags|log.Lmicroseconds)
}

func logf(s stream, format string, args []interface{}) {
	mu.RLock()
	l := loggers[s]
	mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

// Opsf writes to the ops stream.
func Opsf(format string, args ...interface{}) { logf(opsStream, format, args) }

// Diagf writes to the diag stream.
func Diagf(format string, args ...interface{}) { logf(diagStream, format, args) }

// Tracef writes to the per-frame trace stream.
func Tracef(format string, args ...interface{}) { logf(traceStream, format, args) }
