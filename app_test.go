package main

import (
	"errors"
	"testing"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
)

func TestSessionReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.SessionStateReason]string{
		domain.SessionReasonReady:              "Ready",
		domain.SessionReasonRecordingStarted:   "Recording started",
		domain.SessionReasonRecordingRestarted: "Recording restarted; previous capture discarded",
		domain.SessionReasonTranscribing:       "Recording stopped. Transcribing...",
		domain.SessionReasonTranslating:        "Translating...",
		domain.SessionReasonRefining:           "Refining...",
		domain.SessionReasonResultDelivered:    "Result delivered",
		domain.SessionReasonRecordingDiscarded: "Recording discarded",
		domain.SessionReasonNoSpeech:           "No speech detected",
		domain.SessionReasonRunFailed:          "Processing failed",
		domain.SessionReasonRunSuperseded:      "Superseded by a newer recording",
	}

	for reason, want := range cases {
		reason := reason
		want := want
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			if got := sessionReasonMessage(reason); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := sessionReasonMessage("unknown"); got != "" {
		t.Fatalf("expected empty unknown reason message, got %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:     "Startup failed",
		domain.ErrorCodeHotkey:      "Global hotkey unavailable",
		domain.ErrorCodeCapture:     "Audio capture issue",
		domain.ErrorCodeRecognition: "Speech recognition error",
		domain.ErrorCodeTranslation: "Translation error",
		domain.ErrorCodeRefinement:  "Refinement failed; using unrefined text",
		domain.ErrorCodeGlossary:    "Glossary update failed",
		domain.ErrorCodeClipboard:   "Clipboard write failed",
		domain.ErrorCodeExport:      "Saving the result failed",
	}
	for code, want := range cases {
		code := code
		want := want
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("unknown", "detail"); got != "detail" {
		t.Fatalf("expected detail fallback, got %q", got)
	}
	if got := errorMessage("unknown", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	if err := app.requireReady(); err == nil {
		t.Fatal("expected uninitialized error")
	}

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	if err := app.requireReady(); !errors.Is(err, bootErr) {
		t.Fatalf("expected boot error, got %v", err)
	}
}

func TestGetStatusBeforeStartup(t *testing.T) {
	t.Parallel()

	app := &App{}
	status := app.GetStatus()
	if status.State != domain.SessionStateIdle || status.Active {
		t.Fatalf("unexpected status: %+v", status)
	}

	app.bootErr = errors.New("boot failed")
	status = app.GetStatus()
	if status.State != domain.SessionStateError || status.Message == "" {
		t.Fatalf("unexpected boot error status: %+v", status)
	}
}

func TestTakePendingTranslationBeforeStartup(t *testing.T) {
	t.Parallel()

	app := &App{}
	if req := app.TakePendingTranslation(); req != nil {
		t.Fatalf("expected nil request before startup, got %+v", req)
	}
	// Must not panic without a broker.
	app.CompleteTranslation("id", "text", "")
}
