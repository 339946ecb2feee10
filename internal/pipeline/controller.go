package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/fukudafukuo/VoiceNote/internal/audio"
	"github.com/fukudafukuo/VoiceNote/internal/domain"
	"github.com/fukudafukuo/VoiceNote/internal/ports"
	"github.com/fukudafukuo/VoiceNote/internal/recog"
)

var ErrNoActiveSession = errors.New("no active recording session")

// ControllerConfig selects the recognition path for captured audio.
type ControllerConfig struct {
	// Streaming feeds live buffers into a streaming recognition session;
	// otherwise the finished recording is transcribed in one batch call.
	Streaming bool
	Recog     recog.Config
	KeepFiles bool
}

// Controller drives one capture/recognition session at a time and hands the
// transcript to the orchestrator.
type Controller struct {
	audio  *audio.Engine
	engine ports.SpeechEngine
	orch   *Orchestrator
	events ports.EventSink
	cfg    ControllerConfig

	newSession func() *recog.Session

	mu      sync.Mutex
	state   domain.SessionState
	session *recog.Session
}

func NewController(
	capture *audio.Engine,
	engine ports.SpeechEngine,
	orch *Orchestrator,
	events ports.EventSink,
	cfg ControllerConfig,
) *Controller {
	c := &Controller{
		audio:  capture,
		engine: engine,
		orch:   orch,
		events: events,
		cfg:    cfg,
		state:  domain.SessionStateIdle,
	}
	c.newSession = func() *recog.Session {
		return recog.NewSession(engine, events, cfg.Recog)
	}
	return c
}

// Start begins a new capture session. An already-running session is
// discarded first and the new one reported as a restart.
func (c *Controller) Start(ctx context.Context) error {
	restarted := false
	if c.Recording() {
		c.discard()
		restarted = true
	}

	var session *recog.Session
	if c.cfg.Streaming {
		session = c.newSession()
		if err := session.Begin(ctx); err != nil {
			c.reportStartFailure(err)
			return err
		}
		c.audio.RegisterSink(session)
	}

	if err := c.audio.Start(ctx); err != nil {
		if session != nil {
			session.Abort()
		}
		c.reportStartFailure(err)
		return err
	}

	c.mu.Lock()
	c.state = domain.SessionStateRecording
	c.session = session
	c.mu.Unlock()

	reason := domain.SessionReasonRecordingStarted
	if restarted {
		reason = domain.SessionReasonRecordingRestarted
	}
	c.events.SessionStateChanged(domain.SessionStateRecording, reason)
	return nil
}

// Stop ends capture, obtains the transcript and runs the pipeline. It blocks
// until the run completes or is superseded.
func (c *Controller) Stop(ctx context.Context) (domain.RunResult, error) {
	c.mu.Lock()
	if c.state != domain.SessionStateRecording {
		c.mu.Unlock()
		return domain.RunResult{}, ErrNoActiveSession
	}
	c.state = domain.SessionStateProcessing
	session := c.session
	c.session = nil
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateProcessing, domain.SessionReasonTranscribing)

	text, err := c.collectTranscript(ctx, session)
	if err != nil {
		c.setIdle()
		c.events.SessionError(recognitionErrorCode(err), err.Error())
		c.events.SessionStateChanged(domain.SessionStateError, domain.SessionReasonRunFailed)
		return domain.RunResult{}, err
	}
	if strings.TrimSpace(text) == "" {
		c.setIdle()
		c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonNoSpeech)
		return domain.RunResult{}, nil
	}

	result, err := c.orch.Run(ctx, text)
	c.setIdle()
	if errors.Is(err, ErrRunSuperseded) || errors.Is(err, ErrNothingToDo) {
		return domain.RunResult{}, nil
	}
	return result, err
}

// Toggle starts when idle and stops when recording; the double-tap hotkey
// lands here.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.Recording() {
		_, err := c.Stop(ctx)
		return err
	}
	return c.Start(ctx)
}

// Abort discards the active session without producing a result.
func (c *Controller) Abort() error {
	if !c.Recording() {
		return ErrNoActiveSession
	}
	c.discard()
	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonRecordingDiscarded)
	return nil
}

// Cancel discards any active recording and aborts the pipeline run in
// flight. A run waiting on the translation broker is resolved with a
// cancellation outcome.
func (c *Controller) Cancel() {
	if c.Recording() {
		c.discard()
		c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonRecordingDiscarded)
	}
	c.orch.CancelCurrent()
}

// Recording reports whether a capture session is active.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == domain.SessionStateRecording
}

// Status summarizes the controller for the UI.
func (c *Controller) Status() domain.Status {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	return domain.Status{
		State:   state,
		Active:  state != domain.SessionStateIdle,
		Elapsed: c.audio.Elapsed().Seconds(),
	}
}

func (c *Controller) collectTranscript(ctx context.Context, session *recog.Session) (string, error) {
	path, stopErr := c.audio.Stop()

	if c.cfg.Streaming {
		if session == nil {
			return "", ErrNoActiveSession
		}
		return session.End(ctx)
	}

	if stopErr != nil {
		return "", stopErr
	}
	if path == "" {
		return "", nil
	}
	if !c.cfg.KeepFiles {
		defer func() { _ = os.Remove(path) }()
	}
	return recog.TranscribeFile(ctx, c.engine, path)
}

func (c *Controller) discard() {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.state = domain.SessionStateIdle
	c.mu.Unlock()

	path, _ := c.audio.Stop()
	if path != "" && !c.cfg.KeepFiles {
		_ = os.Remove(path)
	}
	if session != nil {
		session.Abort()
	}
}

func (c *Controller) setIdle() {
	c.mu.Lock()
	c.state = domain.SessionStateIdle
	c.mu.Unlock()
}

func (c *Controller) reportStartFailure(err error) {
	code := domain.ErrorCodeCapture
	if errors.Is(err, domain.ErrRecognitionUnauthorized) || errors.Is(err, domain.ErrRecognitionEngine) {
		code = domain.ErrorCodeRecognition
	}
	c.events.SessionError(code, err.Error())
	c.events.SessionStateChanged(domain.SessionStateError, domain.SessionReasonRunFailed)
}

func recognitionErrorCode(err error) domain.ErrorCode {
	if errors.Is(err, domain.ErrCaptureUnavailable) || errors.Is(err, domain.ErrConverterSetup) {
		return domain.ErrorCodeCapture
	}
	return domain.ErrorCodeRecognition
}
