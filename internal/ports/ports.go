package ports

import (
	"context"
	"io"
	"time"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live microphone capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// BufferSink receives native-format buffers from the capture engine in
// live-tap mode. OnBuffer is called from a capture-owned goroutine.
type BufferSink interface {
	OnBuffer(buf domain.AudioBuffer)
}

// StreamingConfig describes engine-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	Language       string
	InterimResults bool
}

// StreamingSession is an active streaming recognition session with an
// external speech engine.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// SpeechEngine is the external batch/streaming speech engine. Either call
// may fail with domain.ErrRecognitionUnauthorized before accepting input.
type SpeechEngine interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// Refiner is the optional external style-refinement capability.
type Refiner interface {
	AdjustStyle(ctx context.Context, text string, preset string) (string, error)
}

// KeyTransition is one press/release edge of the designated hotkey.
type KeyTransition struct {
	Pressed bool
	At      time.Time
}

// KeySource attaches to the global input stream for the designated key and
// delivers transitions to the handler until ctx is done. Attach returns an
// error when the stream cannot be observed (missing permissions).
type KeySource interface {
	Attach(ctx context.Context, handler func(KeyTransition)) error
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits backend state and results to the presentation layer. It is
// also the only channel through which the restricted translation context can
// be reached: TranslationRequested wakes it, InvalidateTranslation tells it
// to discard its translation session state.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	ElapsedDuration(seconds float64)
	PartialTranscript(text string)
	IntermediateResult(text string)
	FinalResult(result domain.RunResult)
	TranslationRequested(requestID string)
	InvalidateTranslation()
	SessionError(code domain.ErrorCode, detail string)
}
