package logging

import (
	"testing"

	"github.com/gekko3d/voxelterrain/errs"
)

func TestDefaultLogger_DebugGate(t *testing.T) {
	l := NewDefaultLogger("test", false)
	if l.DebugEnabled() {
		t.Fatalf("expected debug disabled by default")
	}
	l.SetDebug(true)
	if !l.DebugEnabled() {
		t.Fatalf("expected debug enabled after SetDebug(true)")
	}
}

func TestNopLogger_NeverPanics(t *testing.T) {
	l := NewNopLogger()
	l.Debugf("x")
	l.Infof("x")
	l.Warnf("x")
	l.Errorf("x")
	l.LogErr("op", errs.Newf(errs.Saturation, "op", "x"))
	l.SetDebug(true)
	if l.DebugEnabled() {
		t.Fatalf("nop logger should never report debug enabled")
	}
}

func TestDefaultLogger_LogErr_NeverPanicsForAnyKind(t *testing.T) {
	l := NewDefaultLogger("test", false)
	l.LogErr("op", errs.Newf(errs.Saturation, "op", "saturated"))
	l.LogErr("op", errs.Newf(errs.ResourceExhausted, "op", "exhausted"))
	l.LogErr("op", errs.Newf(errs.Internal, "op", "broken invariant"))
	l.LogErr("op", errs.Newf(errs.InvalidInput, "op", "bad input"))
}
