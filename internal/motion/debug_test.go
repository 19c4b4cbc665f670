package motion

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogWriters(t *testing.T) {
	defer SetLogWriters(LogWriters{})

	var ops, diag, trace bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops, Diag: &diag, Trace: &trace})

	Opsf("skipped clip %q", "walk_01")
	Diagf("built %d windows", 42)
	Tracef("frame %d interp=%.2f", 7, 0.5)

	if !strings.Contains(ops.String(), `skipped clip "walk_01"`) {
		t.Errorf("ops output = %q", ops.String())
	}
	if !strings.Contains(diag.String(), "built 42 windows") {
		t.Errorf("diag output = %q", diag.String())
	}
	if !strings.Contains(trace.String(), "frame 7 interp=0.50") {
		t.Errorf("trace output = %q", trace.String())
	}
	if !strings.HasPrefix(ops.String(), "[motion] ") {
		t.Errorf("ops output missing prefix: %q", ops.String())
	}
}

func TestLogStreamsDisabled(t *testing.T) {
	defer SetLogWriters(LogWriters{})

	var ops bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops})

	// Disabled streams must not panic.
	Diagf("should not appear %d", 1)
	Tracef("should not appear %d", 2)

	if ops.Len() != 0 {
		t.Errorf("ops output = %q, want empty", ops.String())
	}

	SetLogWriters(LogWriters{})
	Opsf("after disable")
	if ops.Len() != 0 {
		t.Errorf("ops output after disable = %q, want empty", ops.String())
	}
}
