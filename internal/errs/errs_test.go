package errs

import (
	"errors"
	"testing"
)

func TestRetryableKinds(t *testing.T) {
	retryable := []Kind{SpawnFailed, Timeout, ExitNonzero, ParseFailed, ModelInternal}
	for _, k := range retryable {
		if !k.Retryable() {
			t.Errorf("%s: expected Retryable() = true", k)
		}
	}

	nonRetryable := []Kind{ValidationFailed, Cancelled, KPIUnavailable}
	for _, k := range nonRetryable {
		if k.Retryable() {
			t.Errorf("%s: expected Retryable() = false", k)
		}
	}
}

func TestErrorFormattingWithAndWithoutCause(t *testing.T) {
	plain := New(Timeout, "deadline exceeded")
	if plain.Error() == "" {
		t.Fatal("Error() should not be empty")
	}

	wrapped := Wrap(ExitNonzero, "simulation failed", errors.New("exit status 7"))
	if wrapped.Unwrap() == nil {
		t.Fatal("Unwrap() should return the wrapped cause")
	}
	if !errors.Is(wrapped, wrapped.Unwrap()) {
		t.Fatal("errors.Is should see through Unwrap")
	}
}

func TestKindOfExtractsKindThroughWrapping(t *testing.T) {
	base := New(KPIUnavailable, "objective missing")
	outerErr := errorsWrapf(base)

	if got := KindOf(outerErr); got != KPIUnavailable {
		t.Fatalf("KindOf = %v, want %v", got, KPIUnavailable)
	}
}

func TestKindOfDefaultsToModelInternalForUnknownErrors(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != ModelInternal {
		t.Fatalf("KindOf(plain error) = %v, want %v", got, ModelInternal)
	}
}

func errorsWrapf(err error) error {
	return errors_Wrapper{err}
}

type errors_Wrapper struct{ err error }

func (w errors_Wrapper) Error() string { return "context: " + w.err.Error() }
func (w errors_Wrapper) Unwrap() error { return w.err }
