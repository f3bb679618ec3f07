package event

import (
	"strings"
	"testing"
)

func TestReprNil(t *testing.T) {
	if got := Repr(nil, 100); got != "None" {
		t.Errorf("Expected None for nil, got %q", got)
	}
}

func TestReprString(t *testing.T) {
	if got := Repr("hello", 100); got != "'hello'" {
		t.Errorf("Expected quoted string, got %q", got)
	}
}

func TestReprBool(t *testing.T) {
	if got := Repr(true, 100); got != "True" {
		t.Errorf("Expected True, got %q", got)
	}
	if got := Repr(false, 100); got != "False" {
		t.Errorf("Expected False, got %q", got)
	}
}

func TestReprNumbers(t *testing.T) {
	if got := Repr(42, 100); got != "42" {
		t.Errorf("Expected 42, got %q", got)
	}
	if got := Repr(2.5, 100); got != "2.5" {
		t.Errorf("Expected 2.5, got %q", got)
	}
}

func TestReprTruncation(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := Repr(long, 100)
	if len(got) != 100 {
		t.Errorf("Expected 100 bytes after truncation, got %d", len(got))
	}
}

func TestReprNoLimit(t *testing.T) {
	long := strings.Repeat("x", 500)
	got := Repr(long, 0)
	// limit 0 means unbounded; the quotes add two bytes
	if len(got) != 502 {
		t.Errorf("Expected full output with limit 0, got %d bytes", len(got))
	}
}

type panicStringer struct{}

func (panicStringer) String() string { panic("boom") }

func TestReprNeverPanics(t *testing.T) {
	if got := Repr(panicStringer{}, 100); got != Unprintable {
		t.Errorf("Expected %q on rendering fault, got %q", Unprintable, got)
	}
}
