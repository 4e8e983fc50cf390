package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeResolutionAmbiguity, "two candidates")
		if !IsCode(err, CodeResolutionAmbiguity) {
			t.Error("expected IsCode to return true for CodeResolutionAmbiguity")
		}
		if IsCode(err, CodeUnresolvedReference) {
			t.Error("expected IsCode to return false for CodeUnresolvedReference")
		}
	})

	t.Run("IsCodeWithWrapped", func(t *testing.T) {
		inner := New(CodeModuleUnavailable, "no index entry")
		err := fmt.Errorf("expand wildcard: %w", inner)
		if !IsCode(err, CodeModuleUnavailable) {
			t.Error("expected IsCode to see through fmt wrapping")
		}
		if CodeOf(err) != CodeModuleUnavailable {
			t.Errorf("expected CodeOf to return MODULE_UNAVAILABLE, got %q", CodeOf(err))
		}
	})

	t.Run("Diagnostic", func(t *testing.T) {
		d := Diagnostic(CodeUnsupportedConstruct, 12, "tuple target").WithContext(CtxScope, "mod.f")
		expected := "[UNSUPPORTED_CONSTRUCT] tuple target map[line:12 scope:mod.f]"
		if d.Error() != expected {
			t.Errorf("expected %s, got %s", expected, d.Error())
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		plain := errors.New("boom")
		err := AddContext(plain, CtxPath, "a.py")
		if CodeOf(err) != CodeInternal {
			t.Errorf("expected plain errors to be wrapped as internal, got %q", CodeOf(err))
		}
		if !errors.Is(err, plain) {
			t.Error("expected wrapped error to unwrap to the original")
		}
		if CodeOf(plain) != "" {
			t.Error("expected empty code for non-domain error")
		}
	})
}
