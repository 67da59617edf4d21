// Package audio buffers inbound microphone frames and decides when a segment
// is ready for transcription. There is no voice-activity detection here: the
// client marks the end of an utterance with an empty binary frame, and a hard
// byte ceiling bounds memory and latency when no marker ever arrives.
package audio

const (
	// DefaultMinBytes is the smallest segment worth transcribing; shorter
	// audio is assumed to contain no recognizable speech.
	DefaultMinBytes = 8000
	// DefaultMaxBytes forces a flush even without an end-of-utterance marker.
	DefaultMaxBytes = 500_000

	// bytesPerSecond is the rough webm/opus bitrate used to estimate the
	// spoken duration of a segment from its byte length.
	bytesPerSecond = 16000
)

// Accumulator collects raw audio frames for the current turn.
// It is used by a single connection goroutine and is not safe for
// concurrent use.
type Accumulator struct {
	minBytes   int
	maxBytes   int
	chunks     [][]byte
	size       int
	markerSeen bool
}

// NewAccumulator creates an accumulator with the given flush thresholds.
// Non-positive values fall back to the defaults.
func NewAccumulator(minBytes, maxBytes int) *Accumulator {
	if minBytes <= 0 {
		minBytes = DefaultMinBytes
	}
	if maxBytes <= minBytes {
		maxBytes = DefaultMaxBytes
	}
	return &Accumulator{minBytes: minBytes, maxBytes: maxBytes}
}

// Append adds one inbound frame. An empty frame is the end-of-utterance
// marker; a marker arriving before the minimum threshold discards the
// buffered audio, since a sub-minimum utterance is noise rather than speech.
func (a *Accumulator) Append(chunk []byte) {
	if len(chunk) == 0 {
		if a.size < a.minBytes {
			a.Reset()
			return
		}
		a.markerSeen = true
		return
	}
	a.chunks = append(a.chunks, chunk)
	a.size += len(chunk)
}

// ShouldFlush reports whether the buffered segment is ready for transcription:
// the client marked the utterance complete and enough audio accumulated, or
// the hard ceiling was reached.
func (a *Accumulator) ShouldFlush() bool {
	if a.size >= a.maxBytes {
		return true
	}
	return a.markerSeen && a.size >= a.minBytes
}

// Flush concatenates the buffered frames into one segment and resets the
// accumulator. It returns nil when nothing is buffered.
func (a *Accumulator) Flush() []byte {
	if a.size == 0 {
		a.Reset()
		return nil
	}
	segment := make([]byte, 0, a.size)
	for _, c := range a.chunks {
		segment = append(segment, c...)
	}
	a.Reset()
	return segment
}

// Reset drops all buffered audio and the pending marker.
func (a *Accumulator) Reset() {
	a.chunks = nil
	a.size = 0
	a.markerSeen = false
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int { return a.size }

// EstimateDuration approximates the spoken seconds in a segment of n bytes
// using a fixed bitrate assumption.
func EstimateDuration(n int) float64 {
	return float64(n) / bytesPerSecond
}
