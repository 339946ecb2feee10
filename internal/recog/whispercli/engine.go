// Package whispercli implements batch-only speech recognition by invoking a
// local whisper.cpp binary on a finished recording. It has no streaming
// capability; live sessions must use a streaming engine instead.
package whispercli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
	"github.com/fukudafukuo/VoiceNote/internal/ports"
)

// Config locates the whisper binary and model.
type Config struct {
	BinaryPath string
	ModelPath  string
	Language   string
}

type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// Engine implements ports.SpeechEngine for local whisper.cpp transcription.
type Engine struct {
	cfg       Config
	runner    commandRunner
	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	readFile  func(name string) ([]byte, error)
}

func NewEngine(cfg Config) *Engine {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "whisper.cpp"
	}
	return &Engine{
		cfg:       cfg,
		runner:    execRunner{},
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		readFile:  os.ReadFile,
	}
}

// TranscribeFile runs the whisper binary over the recording and returns the
// exported transcript text.
func (e *Engine) TranscribeFile(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(e.cfg.ModelPath) == "" {
		return "", fmt.Errorf("%w: whisper model path is not configured", domain.ErrRecognitionEngine)
	}
	if _, err := os.Stat(e.cfg.ModelPath); err != nil {
		return "", fmt.Errorf("%w: cannot access whisper model: %v", domain.ErrRecognitionEngine, err)
	}

	workDir, err := e.mkdirTemp("", "voicenote-whisper-*")
	if err != nil {
		return "", fmt.Errorf("%w: create transcription workspace: %v", domain.ErrRecognitionEngine, err)
	}
	defer func() { _ = e.removeAll(workDir) }()

	outBase := filepath.Join(workDir, "transcript")
	args := buildArgs(e.cfg, path, outBase)

	result, runErr := e.runner.Run(ctx, e.cfg.BinaryPath, args...)
	if runErr != nil {
		detail := strings.TrimSpace(result.Stderr)
		if detail == "" {
			detail = runErr.Error()
		}
		return "", fmt.Errorf("%w: whisper exited with %d: %s", domain.ErrRecognitionEngine, result.ExitCode, detail)
	}

	content, err := e.readFile(outBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("%w: whisper completed but transcript file is missing: %v", domain.ErrRecognitionEngine, err)
	}
	return strings.TrimSpace(string(content)), nil
}

// StartStreaming always fails; this engine only handles finished recordings.
func (e *Engine) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	return nil, fmt.Errorf("%w: whisper cli engine does not support streaming", domain.ErrRecognitionEngine)
}

func buildArgs(cfg Config, audioPath, outBase string) []string {
	args := []string{
		"-m", cfg.ModelPath,
		"-f", audioPath,
		"-of", outBase,
		"-otxt",
	}
	if lang := normalizeLanguage(cfg.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	return args
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}
