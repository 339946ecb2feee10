package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/fukudafukuo/VoiceNote/internal/bootstrap"
	"github.com/fukudafukuo/VoiceNote/internal/broker"
	"github.com/fukudafukuo/VoiceNote/internal/config"
	"github.com/fukudafukuo/VoiceNote/internal/domain"
	"github.com/fukudafukuo/VoiceNote/internal/glossary"
	"github.com/fukudafukuo/VoiceNote/internal/pipeline"
)

const (
	eventSession             = "voicenote:session"
	eventElapsed             = "voicenote:elapsed"
	eventPartial             = "voicenote:partial"
	eventIntermediate        = "voicenote:intermediate"
	eventFinal               = "voicenote:final"
	eventError               = "voicenote:error"
	eventTranslateRequest    = "voicenote:translate-request"
	eventTranslateInvalidate = "voicenote:translate-invalidate"
)

// App is the Wails application root. Its frontend is also the restricted
// execution context that services translation requests: the backend never
// calls into it directly, it only emits events and waits on the broker.
type App struct {
	ctx context.Context

	controller *pipeline.Controller
	broker     *broker.Broker
	glossary   *glossary.Manager
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.broker = services.Broker
	a.glossary = services.Glossary

	go func() { _ = services.Trigger.Run(ctx) }()

	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
}

// StartCapture begins a new recording session.
func (a *App) StartCapture() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// StopCapture ends recording and runs the full pipeline to a final result.
func (a *App) StopCapture() (domain.RunResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.RunResult{}, err
	}
	return a.controller.Stop(a.ctx)
}

// ToggleCapture starts or stops recording; the double-tap hotkey and the UI
// button both land here.
func (a *App) ToggleCapture() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.Toggle(a.ctx)
}

// AbortCapture discards an in-progress recording.
func (a *App) AbortCapture() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Abort(); err != nil {
		if errors.Is(err, pipeline.ErrNoActiveSession) {
			return nil
		}
		return err
	}
	return nil
}

// CancelRun aborts recording and cancels any pipeline run in flight.
func (a *App) CancelRun() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Cancel()
	return nil
}

// RegisterTranslator marks the frontend translation context as ready to
// service requests.
func (a *App) RegisterTranslator() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.broker.MarkReady()
	return nil
}

// TakePendingTranslation atomically removes and returns the pending request,
// or nil when the slot is empty.
func (a *App) TakePendingTranslation() *broker.Request {
	if a.broker == nil {
		return nil
	}
	req, ok := a.broker.TakePending()
	if !ok {
		return nil
	}
	return &req
}

// CompleteTranslation resolves a taken request with its translated text or a
// failure message.
func (a *App) CompleteTranslation(id string, text string, errMsg string) {
	if a.broker == nil {
		return
	}
	if errMsg != "" {
		a.broker.Complete(id, "", fmt.Errorf("%w: %s", domain.ErrTranslationUnavailable, errMsg))
		return
	}
	a.broker.Complete(id, text, nil)
}

// ListGlossaryProjects returns all glossary projects.
func (a *App) ListGlossaryProjects() ([]glossary.Project, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.glossary.Projects(), nil
}

// CreateGlossaryProject creates an inactive empty project.
func (a *App) CreateGlossaryProject(name string) (glossary.Project, error) {
	if err := a.requireReady(); err != nil {
		return glossary.Project{}, err
	}
	project, err := a.glossary.CreateProject(name)
	if err != nil {
		a.SessionError(domain.ErrorCodeGlossary, err.Error())
	}
	return project, err
}

// DeleteGlossaryProject removes a project.
func (a *App) DeleteGlossaryProject(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.glossary.DeleteProject(id); err != nil {
		a.SessionError(domain.ErrorCodeGlossary, err.Error())
		return err
	}
	return nil
}

// SetActiveGlossaryProject activates one project, or deactivates all when id
// is empty.
func (a *App) SetActiveGlossaryProject(id string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.glossary.SetActive(id); err != nil {
		a.SessionError(domain.ErrorCodeGlossary, err.Error())
		return err
	}
	return nil
}

// PutGlossaryEntry adds or replaces an entry in a project.
func (a *App) PutGlossaryEntry(projectID string, entry glossary.Entry) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.glossary.PutEntry(projectID, entry); err != nil {
		a.SessionError(domain.ErrorCodeGlossary, err.Error())
		return err
	}
	return nil
}

// RemoveGlossaryEntry deletes an entry from a project.
func (a *App) RemoveGlossaryEntry(projectID string, source string, kind glossary.EntryKind) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.glossary.RemoveEntry(projectID, source, kind); err != nil {
		a.SessionError(domain.ErrorCodeGlossary, err.Error())
		return err
	}
	return nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	engine := "whisper.cpp"
	if a.cfg.Session.Streaming {
		engine = "Deepgram"
	}
	return map[string]string{
		"engine":     engine,
		"model":      a.cfg.Deepgram.Model,
		"sourceLang": a.cfg.Translation.SourceLang,
		"targetLang": a.cfg.Translation.TargetLang,
		"audioInput": a.cfg.Audio.InputDevice,
		"refine":     fmt.Sprintf("%t", a.cfg.Refine.Enabled),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// ElapsedDuration emits the running recording duration.
func (a *App) ElapsedDuration(seconds float64) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventElapsed, map[string]float64{"seconds": seconds})
}

// PartialTranscript emits live partial transcript text.
func (a *App) PartialTranscript(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPartial, map[string]string{"text": text})
}

// IntermediateResult emits the translated text before refinement.
func (a *App) IntermediateResult(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventIntermediate, map[string]string{"text": text})
}

// FinalResult emits the finished pipeline result.
func (a *App) FinalResult(result domain.RunResult) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventFinal, result)
}

// TranslationRequested wakes the frontend translation context.
func (a *App) TranslationRequested(requestID string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranslateRequest, map[string]string{"id": requestID})
}

// InvalidateTranslation tells the frontend to rebuild its translation
// session state.
func (a *App) InvalidateTranslation() {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranslateInvalidate, map[string]string{})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonRecordingStarted:
		return "Recording started"
	case domain.SessionReasonRecordingRestarted:
		return "Recording restarted; previous capture discarded"
	case domain.SessionReasonTranscribing:
		return "Recording stopped. Transcribing..."
	case domain.SessionReasonTranslating:
		return "Translating..."
	case domain.SessionReasonRefining:
		return "Refining..."
	case domain.SessionReasonResultDelivered:
		return "Result delivered"
	case domain.SessionReasonRecordingDiscarded:
		return "Recording discarded"
	case domain.SessionReasonNoSpeech:
		return "No speech detected"
	case domain.SessionReasonRunFailed:
		return "Processing failed"
	case domain.SessionReasonRunSuperseded:
		return "Superseded by a newer recording"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeHotkey:
		return "Global hotkey unavailable"
	case domain.ErrorCodeCapture:
		return "Audio capture issue"
	case domain.ErrorCodeRecognition:
		return "Speech recognition error"
	case domain.ErrorCodeTranslation:
		return "Translation error"
	case domain.ErrorCodeRefinement:
		return "Refinement failed; using unrefined text"
	case domain.ErrorCodeGlossary:
		return "Glossary update failed"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	case domain.ErrorCodeExport:
		return "Saving the result failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
