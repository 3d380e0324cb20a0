package pdferrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ErrorStringIncludesCodeAndMessage(t *testing.T) {
	err := New(CodeInvalidPage, "page 7 is out of range")
	got := err.Error()
	want := "[INVALID_PAGE] page 7 is out of range"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_ErrorStringIncludesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(CodeTemplateUnavailable, "failed to fetch template", cause)
	got := err.Error()
	want := "[TEMPLATE_UNAVAILABLE] failed to fetch template: connection refused"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_UnwrapReturnsCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(CodeIOError, "write failed", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestError_IsMatchesByCodeOnly(t *testing.T) {
	a := New(CodeInvalidFieldJSON, "field_id is required")
	b := New(CodeInvalidFieldJSON, "width/height must be > 0")
	if !errors.Is(a, b) {
		t.Error("expected two errors with the same code to satisfy errors.Is")
	}
}

func TestError_IsRejectsDifferentCode(t *testing.T) {
	a := New(CodeInvalidPage, "page is negative")
	b := New(CodeInvalidFieldJSON, "field_id is required")
	if errors.Is(a, b) {
		t.Error("expected errors with different codes to not satisfy errors.Is")
	}
}

func TestErrorsIs_MatchesSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"template unavailable", New(CodeTemplateUnavailable, "unreachable"), ErrTemplateUnavailable},
		{"template unparseable", New(CodeTemplateUnparseable, "bad header"), ErrTemplateUnparseable},
		{"output unwritable", New(CodeOutputUnwritable, "permission denied"), ErrOutputUnwritable},
		{"invalid field json", New(CodeInvalidFieldJSON, "not an array"), ErrInvalidFieldJSON},
		{"invalid page", New(CodeInvalidPage, "negative page"), ErrInvalidPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("expected %v to match sentinel %v", tt.err, tt.sentinel)
			}
		})
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	err := Newf(CodeInvalidPage, "page %d is negative", -3)
	want := "[INVALID_PAGE] page -3 is negative"
	if err.Error() != want {
		t.Errorf("Newf() = %q, want %q", err.Error(), want)
	}
}

func TestError_IsRejectsNonError(t *testing.T) {
	err := New(CodeIOError, "disk full")
	if errors.Is(err, fmt.Errorf("some plain error")) {
		t.Error("expected a plain error to never satisfy errors.Is against *Error")
	}
}
