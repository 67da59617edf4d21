package audio

import (
	"bytes"
	"testing"
)

func TestFlushRequiresMarkerAndMinimum(t *testing.T) {
	a := NewAccumulator(8000, 500_000)

	a.Append(make([]byte, 3000))
	a.Append(make([]byte, 3000))
	if a.ShouldFlush() {
		t.Fatalf("must not flush below minimum without marker")
	}

	a.Append(make([]byte, 3000))
	if a.ShouldFlush() {
		t.Fatalf("must not flush above minimum without marker")
	}

	a.Append(nil) // end-of-utterance marker
	if !a.ShouldFlush() {
		t.Fatalf("should flush: 9000 bytes buffered and marker seen")
	}

	segment := a.Flush()
	if len(segment) != 9000 {
		t.Fatalf("flushed %d bytes, want 9000", len(segment))
	}
	if a.Len() != 0 || a.ShouldFlush() {
		t.Fatalf("accumulator not reset after flush")
	}
}

func TestMarkerBelowMinimumDiscards(t *testing.T) {
	a := NewAccumulator(8000, 500_000)

	a.Append(make([]byte, 2000))
	a.Append(nil)

	if a.Len() != 0 {
		t.Fatalf("sub-minimum utterance should be discarded, have %d bytes", a.Len())
	}
	if a.ShouldFlush() {
		t.Fatalf("discarded segment must not be flushable")
	}

	// The stale marker must not carry over to the next utterance.
	a.Append(make([]byte, 9000))
	if a.ShouldFlush() {
		t.Fatalf("new utterance without its own marker must not flush")
	}
}

func TestMaxThresholdFlushesWithoutMarker(t *testing.T) {
	a := NewAccumulator(8000, 500_000)

	a.Append(make([]byte, 500_001))
	if !a.ShouldFlush() {
		t.Fatalf("should flush once the hard ceiling is exceeded")
	}
	if got := len(a.Flush()); got != 500_001 {
		t.Fatalf("flushed %d bytes, want 500001", got)
	}
}

func TestSubMinimumFramesAreRetained(t *testing.T) {
	a := NewAccumulator(8000, 500_000)

	a.Append(make([]byte, 4000))
	if a.Len() != 4000 {
		t.Fatalf("Len = %d, want 4000", a.Len())
	}

	a.Append(make([]byte, 5000))
	a.Append(nil)
	if !a.ShouldFlush() {
		t.Fatalf("retained frames plus marker should flush at 9000 bytes")
	}
}

func TestFlushPreservesFrameOrder(t *testing.T) {
	a := NewAccumulator(2, 500_000)

	a.Append([]byte("ab"))
	a.Append([]byte("cd"))
	a.Append(nil)

	if got := a.Flush(); !bytes.Equal(got, []byte("abcd")) {
		t.Fatalf("Flush() = %q, want %q", got, "abcd")
	}
}

func TestFlushEmptyReturnsNil(t *testing.T) {
	a := NewAccumulator(8000, 500_000)
	if got := a.Flush(); got != nil {
		t.Fatalf("Flush() on empty accumulator = %v, want nil", got)
	}
}

func TestEstimateDuration(t *testing.T) {
	if got := EstimateDuration(16000); got != 1.0 {
		t.Fatalf("EstimateDuration(16000) = %v, want 1.0", got)
	}
	if got := EstimateDuration(8000); got != 0.5 {
		t.Fatalf("EstimateDuration(8000) = %v, want 0.5", got)
	}
}
