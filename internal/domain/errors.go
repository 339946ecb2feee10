package domain

import "errors"

// Sentinel errors for the pipeline failure taxonomy. Callers match with
// errors.Is; detail is attached by wrapping with fmt.Errorf and %w.
var (
	ErrCaptureUnavailable      = errors.New("audio capture unavailable")
	ErrConverterSetup          = errors.New("audio converter setup failed")
	ErrRecognitionUnauthorized = errors.New("speech engine unauthorized")
	ErrRecognitionEngine       = errors.New("speech engine error")
	ErrTranslationUnavailable  = errors.New("translation context not ready")
	ErrTranslationTimeout      = errors.New("translation timed out")
	ErrTranslationCancelled    = errors.New("translation cancelled")
	ErrRefinementFailed        = errors.New("style refinement failed")
	ErrHotkeyUnavailable       = errors.New("global hotkey unavailable")
)
