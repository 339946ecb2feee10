package domain

import "time"

// SessionState models the capture/transcription lifecycle.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateRecording  SessionState = "recording"
	SessionStateProcessing SessionState = "processing"
	SessionStateError      SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady              SessionStateReason = "ready"
	SessionReasonRecordingStarted   SessionStateReason = "recording_started"
	SessionReasonRecordingRestarted SessionStateReason = "recording_restarted"
	SessionReasonTranscribing       SessionStateReason = "transcribing"
	SessionReasonTranslating        SessionStateReason = "translating"
	SessionReasonRefining           SessionStateReason = "refining"
	SessionReasonResultDelivered    SessionStateReason = "result_delivered"
	SessionReasonRecordingDiscarded SessionStateReason = "recording_discarded"
	SessionReasonNoSpeech           SessionStateReason = "no_speech"
	SessionReasonRunFailed          SessionStateReason = "run_failed"
	SessionReasonRunSuperseded      SessionStateReason = "run_superseded"
)

// ErrorCode identifies backend errors projected to the UI.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeHotkey      ErrorCode = "hotkey"
	ErrorCodeCapture     ErrorCode = "capture"
	ErrorCodeRecognition ErrorCode = "recognition"
	ErrorCodeTranslation ErrorCode = "translation"
	ErrorCodeRefinement  ErrorCode = "refinement"
	ErrorCodeGlossary    ErrorCode = "glossary"
	ErrorCodeClipboard   ErrorCode = "clipboard"
	ErrorCodeExport      ErrorCode = "export"
)

// AudioBuffer is one block of captured PCM samples. Buffers are produced by
// the capture engine and consumed transiently by the recognition session;
// they are never retained past the active recording.
type AudioBuffer struct {
	PCM        []byte
	SampleRate int
	Channels   int
	Seq        int64
}

// RecognitionPhase enumerates the streaming recognition state machine.
type RecognitionPhase string

const (
	RecognitionIdle       RecognitionPhase = "idle"
	RecognitionStreaming  RecognitionPhase = "streaming"
	RecognitionFinalizing RecognitionPhase = "finalizing"
	RecognitionDone       RecognitionPhase = "done"
	RecognitionFailed     RecognitionPhase = "failed"
)

// RecognitionState is the tagged state of a streaming recognition session.
// Partial carries the latest partial transcript while streaming, Final the
// authoritative (or fallback) result once done, Reason the failure cause.
type RecognitionState struct {
	Phase    RecognitionPhase
	Partial  string
	Final    string
	Deadline time.Time
	Reason   error
}

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental recognition output from an engine.
type TranscriptEvent struct {
	Kind TranscriptKind `json:"kind"`
	Text string         `json:"text"`
	Err  error          `json:"-"`
}

// TokenKind classifies a protected span.
type TokenKind string

const (
	TokenCodeBlock  TokenKind = "code_block"
	TokenInlineCode TokenKind = "inline_code"
	TokenEmail      TokenKind = "email"
	TokenURL        TokenKind = "url"
	TokenFilePath   TokenKind = "file_path"
	TokenShell      TokenKind = "shell_command"
	TokenHash       TokenKind = "hash"
	TokenVersion    TokenKind = "version"
	TokenDateTime   TokenKind = "datetime"
	TokenNumber     TokenKind = "number"
	TokenGlossary   TokenKind = "glossary"
)

// ProtectedToken maps a generated placeholder back to the original span.
type ProtectedToken struct {
	Placeholder string    `json:"placeholder"`
	Original    string    `json:"original"`
	Kind        TokenKind `json:"kind"`
}

// RunStage names the pipeline stage a run is currently executing.
type RunStage string

const (
	RunStageSanitize  RunStage = "sanitize"
	RunStageTranslate RunStage = "translate"
	RunStageRestore   RunStage = "restore"
	RunStageRefine    RunStage = "refine"
	RunStageDone      RunStage = "done"
)

// RunResult is the outcome of one orchestrator run.
type RunResult struct {
	RunID        string `json:"runId"`
	SourceText   string `json:"sourceText"`
	Intermediate string `json:"intermediate"`
	FinalText    string `json:"finalText"`
	Refined      bool   `json:"refined"`
	SavedPath    string `json:"savedPath,omitempty"`
	Copied       bool   `json:"copied"`
}

// Status summarizes the current runtime status for the UI.
type Status struct {
	State   SessionState `json:"state"`
	Active  bool         `json:"active"`
	Elapsed float64      `json:"elapsed"`
	Message string       `json:"message,omitempty"`
}
