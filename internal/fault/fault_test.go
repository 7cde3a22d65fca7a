package fault

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestKindForCodedError(t *testing.T) {
	err := New(KindLaunchFailure, "ffmpeg not found", nil)
	if got := Kind(err); got != KindLaunchFailure {
		t.Fatalf("Kind() = %q; want %q", got, KindLaunchFailure)
	}
}

func TestKindForWrappedCodedError(t *testing.T) {
	inner := New(KindTimeout, "navigation deadline exceeded", nil)
	wrapped := fmt.Errorf("dispatch navigate_to_page: %w", inner)
	if got := Kind(wrapped); got != KindTimeout {
		t.Fatalf("Kind() = %q; want %q", got, KindTimeout)
	}
}

func TestKindDefaultsToInternal(t *testing.T) {
	if got := Kind(errors.New("boom")); got != KindInternal {
		t.Fatalf("Kind() = %q; want %q", got, KindInternal)
	}
}

func TestMessageIncludesCause(t *testing.T) {
	err := New(KindResourceUnavailable, "chromium launch failed", io.ErrUnexpectedEOF)
	want := "chromium launch failed: unexpected EOF"
	if got := Message(err); got != want {
		t.Fatalf("Message() = %q; want %q", got, want)
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	err := New(KindCaptureFailure, "grab failed", io.ErrClosedPipe)
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatal("errors.Is() should match the cause")
	}
}
