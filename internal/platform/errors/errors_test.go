package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("get guild: %w", New(CodeNotFound, "guild config not found"))
	if !stderrors.Is(err, New(CodeNotFound, "other message")) {
		t.Fatal("expected errors.Is to match by code")
	}
	if stderrors.Is(err, New(CodeIOFailure, "guild config not found")) {
		t.Fatal("expected different code to not match")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeIOFailure, "write settings", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
	if err.Error() != "write settings: disk full" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(nil); got != "" {
		t.Fatalf("CodeOf(nil) = %q, want empty", got)
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("CodeOf(plain) = %q, want %q", got, CodeUnknown)
	}
	wrapped := fmt.Errorf("create room: %w", New(CodeConstraintViolation, "room exists"))
	if got := CodeOf(wrapped); got != CodeConstraintViolation {
		t.Fatalf("CodeOf(wrapped) = %q, want %q", got, CodeConstraintViolation)
	}
	if !HasCode(wrapped, CodeConstraintViolation) {
		t.Fatal("expected HasCode to find constraint violation")
	}
}

func TestCodeSoft(t *testing.T) {
	if !CodeNotFound.Soft() {
		t.Fatal("expected not found to be soft")
	}
	if CodeIOFailure.Soft() {
		t.Fatal("expected io failure to not be soft")
	}
}
