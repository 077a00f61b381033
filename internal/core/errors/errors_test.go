package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNoInput, "no eligible source files")
		if err.Error() != "[NO_INPUT] no eligible source files" {
			t.Errorf("expected [NO_INPUT] no eligible source files, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
		if !errors.Is(err, original) {
			t.Error("expected wrapped error to unwrap to original")
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeMissingComponent, "lexer not supplied")
		if !IsCode(err, CodeMissingComponent) {
			t.Error("expected IsCode to return true for CodeMissingComponent")
		}
		if IsCode(err, CodeNoInput) {
			t.Error("expected IsCode to return false for CodeNoInput")
		}
	})

	t.Run("AddContext", func(t *testing.T) {
		err := AddContext(New(CodeNoInput, "nothing to do"), CtxPaths, []string{"src"})
		if !IsCode(err, CodeNoInput) {
			t.Fatal("expected code to survive AddContext")
		}
		if !strings.Contains(err.Error(), "paths:[src]") {
			t.Errorf("expected context in message, got %s", err.Error())
		}

		plain := AddContext(errors.New("boom"), CtxPath, "a.coffee")
		if !IsCode(plain, CodeInternal) {
			t.Error("expected plain errors to be wrapped as internal")
		}
	})
}

func TestJoin(t *testing.T) {
	if Join(nil, nil) != nil {
		t.Fatal("expected nil for no errors")
	}

	first := New(CodeExportFailed, "list failed")
	second := errors.New("clipboard unavailable")
	err := Join(first, nil, second)

	var agg *AggregateError
	if !errors.As(err, &agg) {
		t.Fatalf("expected *AggregateError, got %T", err)
	}
	if len(agg.Errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(agg.Errs))
	}
	if !errors.Is(err, second) {
		t.Error("expected errors.Is to reach collected errors")
	}
	if !IsCode(err, CodeExportFailed) {
		t.Error("expected IsCode to find a collected domain error")
	}
	if !strings.HasPrefix(err.Error(), "2 error(s): ") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
