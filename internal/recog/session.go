// Package recog wraps the external speech engine behind a state machine
// with a bounded-time finalization guarantee: End always returns within the
// finalize deadline, falling back to the last partial transcript when the
// engine has not produced an authoritative final result in time.
package recog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
	"github.com/fukudafukuo/VoiceNote/internal/ports"
)

const DefaultFinalizeDeadline = 1500 * time.Millisecond

var (
	ErrSessionNotStreaming = errors.New("recognition session is not streaming")
	ErrSessionBusy         = errors.New("recognition session already streaming")
)

// Config controls one streaming session.
type Config struct {
	Streaming        ports.StreamingConfig
	FinalizeDeadline time.Duration
	QueueDepth       int
}

type completion struct {
	text string
	err  error
}

// Session is a streaming recognition session. Buffers fed from the capture
// goroutine are serialized through a single-writer queue; exactly one
// completion is ever delivered, duplicates from the engine are ignored.
type Session struct {
	engine ports.SpeechEngine
	events ports.EventSink
	cfg    Config

	mu      sync.Mutex
	state   domain.RecognitionState
	stream  ports.StreamingSession
	feed   chan []byte
	closed bool
	cancel context.CancelFunc

	finals  []string
	partial string

	complete chan completion
	resolved sync.Once
}

func NewSession(engine ports.SpeechEngine, events ports.EventSink, cfg Config) *Session {
	if cfg.FinalizeDeadline <= 0 {
		cfg.FinalizeDeadline = DefaultFinalizeDeadline
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 64
	}
	return &Session{
		engine:   engine,
		events:   events,
		cfg:      cfg,
		state:    domain.RecognitionState{Phase: domain.RecognitionIdle},
		complete: make(chan completion, 1),
	}
}

// Begin starts the streaming session. Engine authorization failures surface
// here, before any buffer is accepted.
func (s *Session) Begin(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Phase != domain.RecognitionIdle {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.mu.Unlock()

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := s.engine.StartStreaming(streamCtx, s.cfg.Streaming)
	if err != nil {
		cancel()
		if errors.Is(err, domain.ErrRecognitionUnauthorized) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrRecognitionEngine, err)
	}

	s.mu.Lock()
	s.stream = stream
	s.cancel = cancel
	s.feed = make(chan []byte, s.cfg.QueueDepth)
	s.state = domain.RecognitionState{Phase: domain.RecognitionStreaming}
	s.mu.Unlock()

	go s.writeLoop(stream, s.feed)
	go s.consumeEvents(stream)
	return nil
}

// OnBuffer implements ports.BufferSink so the capture engine can tap
// directly into the session.
func (s *Session) OnBuffer(buf domain.AudioBuffer) {
	_ = s.Feed(buf.PCM)
}

// Feed enqueues one buffer for delivery. Buffers are forwarded in arrival
// order by a single writer even though callers run on the capture goroutine.
func (s *Session) Feed(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Phase != domain.RecognitionStreaming || s.closed {
		return ErrSessionNotStreaming
	}

	// The send is serialized with close(s.feed) by the mutex, so a buffer
	// racing a stop request can never hit a closed channel. It never blocks
	// either: a full queue drops the buffer rather than stalling the capture
	// callback.
	select {
	case s.feed <- append([]byte(nil), pcm...):
	default:
	}
	return nil
}

// End requests finalization and returns the transcript. It returns within
// the finalize deadline even if the engine never signals a final result; on
// expiry the most recent partial text becomes the final answer.
func (s *Session) End(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state.Phase != domain.RecognitionStreaming {
		s.mu.Unlock()
		return "", ErrSessionNotStreaming
	}
	deadline := time.Now().Add(s.cfg.FinalizeDeadline)
	s.state = domain.RecognitionState{
		Phase:    domain.RecognitionFinalizing,
		Partial:  s.partial,
		Deadline: deadline,
	}
	s.closed = true
	close(s.feed)
	stream := s.stream
	s.mu.Unlock()

	_ = stream.CloseSend()

	timer := time.NewTimer(s.cfg.FinalizeDeadline)
	defer timer.Stop()

	select {
	case done := <-s.complete:
		s.teardown(done)
		return done.text, done.err
	case <-timer.C:
		done := completion{text: s.fallbackText()}
		s.teardown(done)
		return done.text, done.err
	case <-ctx.Done():
		done := completion{text: s.fallbackText()}
		s.teardown(done)
		return done.text, done.err
	}
}

// Abort discards the session without waiting for a transcript.
func (s *Session) Abort() {
	s.mu.Lock()
	if s.state.Phase == domain.RecognitionStreaming {
		s.closed = true
		close(s.feed)
	}
	stream := s.stream
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}
	s.teardown(completion{err: context.Canceled})
}

// State returns a snapshot of the session state.
func (s *Session) State() domain.RecognitionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) writeLoop(stream ports.StreamingSession, feed <-chan []byte) {
	for chunk := range feed {
		if err := stream.SendAudio(chunk); err != nil {
			return
		}
	}
}

func (s *Session) consumeEvents(stream ports.StreamingSession) {
	for event := range stream.Events() {
		if event.Err != nil {
			s.handleEngineError(event.Err)
			continue
		}

		text := strings.TrimSpace(event.Text)
		if text == "" {
			continue
		}

		s.mu.Lock()
		switch event.Kind {
		case domain.TranscriptKindFinal:
			s.finals = append(s.finals, text)
			s.partial = ""
		case domain.TranscriptKindPartial:
			// Partial text is replaced, never appended.
			s.partial = text
			if s.state.Phase == domain.RecognitionStreaming {
				s.state.Partial = text
			}
		}
		s.mu.Unlock()

		if event.Kind == domain.TranscriptKindPartial {
			s.events.PartialTranscript(text)
		}
	}

	// Engine closed the event stream: whatever has accumulated is the
	// authoritative final result.
	if err := stream.Wait(); err != nil {
		s.handleEngineError(err)
		return
	}
	s.deliver(completion{text: s.fallbackText()})
}

// handleEngineError surfaces engine failures only while no text exists;
// once any partial has been produced the timeout-fallback path wins.
func (s *Session) handleEngineError(err error) {
	s.mu.Lock()
	hasText := s.partial != "" || len(s.finals) > 0
	s.mu.Unlock()

	if hasText {
		return
	}
	s.deliver(completion{err: fmt.Errorf("%w: %v", domain.ErrRecognitionEngine, err)})
}

func (s *Session) deliver(done completion) {
	s.resolved.Do(func() {
		s.complete <- done
	})
}

// fallbackText joins confirmed final segments and appends the trailing
// partial when it is not already covered.
func (s *Session) fallbackText() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	joined := strings.TrimSpace(strings.Join(s.finals, "\n"))
	partial := strings.TrimSpace(s.partial)

	switch {
	case joined == "":
		return partial
	case partial == "" || strings.HasSuffix(joined, partial):
		return joined
	default:
		return joined + "\n" + partial
	}
}

func (s *Session) teardown(done completion) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	stream := s.stream
	s.stream = nil

	if done.err != nil && errors.Is(done.err, domain.ErrRecognitionEngine) {
		s.state = domain.RecognitionState{Phase: domain.RecognitionFailed, Reason: done.err}
	} else {
		s.state = domain.RecognitionState{Phase: domain.RecognitionDone, Final: done.text}
	}
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
	}
}
