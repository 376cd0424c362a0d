package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesType(t *testing.T) {
	base := New(ErrorTypeFlush, "write failed")
	wrapped := Wrap(base, ErrorTypeDisposal, "final flush")

	if !IsType(wrapped, ErrorTypeDisposal) {
		t.Errorf("expected disposal type, got %v", wrapped.Type)
	}
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should unwrap to its cause")
	}
	// The inner flush type is still reachable through the chain
	if !IsType(errors.Unwrap(wrapped), ErrorTypeFlush) {
		t.Error("inner error lost its type")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, ErrorTypeInternal, "ignored") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestIsTypeForeignError(t *testing.T) {
	err := fmt.Errorf("plain error")
	if IsType(err, ErrorTypeInternal) {
		t.Error("plain errors have no type")
	}
}

func TestIsNotSupported(t *testing.T) {
	err := New(ErrorTypeNotSupported, "history not available")
	if !IsNotSupported(err) {
		t.Error("expected not-supported detection")
	}
	if IsNotSupported(New(ErrorTypeNotFound, "missing")) {
		t.Error("not-found must not report as not-supported")
	}
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeFlush, "batch failed").WithDetail("record_id", "x")
	if err.Details["record_id"] != "x" {
		t.Error("detail not recorded")
	}
}
