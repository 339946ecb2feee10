// Package config resolves runtime configuration from environment variables
// with sensible defaults. A .env file next to the binary is honored when
// present.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the whole application.
type Config struct {
	Deepgram    DeepgramConfig
	Whisper     WhisperConfig
	Audio       AudioConfig
	Hotkey      HotkeyConfig
	Translation TranslationConfig
	Refine      RefineConfig
	Output      OutputConfig
	Glossary    GlossaryConfig
	Session     SessionConfig
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type WhisperConfig struct {
	BinaryPath string
	ModelPath  string
	Language   string
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
	TempDir         string
}

type HotkeyConfig struct {
	TapThreshold    time.Duration
	DoubleTapWindow time.Duration
}

type TranslationConfig struct {
	SourceLang string
	TargetLang string
	Timeout    time.Duration
}

type RefineConfig struct {
	Enabled bool
	APIKey  string
	BaseURL string
	Model   string
	Preset  string
}

type OutputConfig struct {
	CopyToClipboard bool
	SaveResults     bool
	SaveDir         string
	PlainText       bool
}

type GlossaryConfig struct {
	Path string
}

type SessionConfig struct {
	Streaming        bool
	ChunkSize        int
	FinalizeDeadline time.Duration
	KeepRecordings   bool
}

// Load resolves configuration. The optional .env file never overrides
// variables already set in the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	configDir := filepath.Join(home, ".config", "voicenote")

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    envOrDefault("DEEPGRAM_LANGUAGE", "ja"),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Whisper: WhisperConfig{
			BinaryPath: envOrDefault("VOICENOTE_WHISPER_BIN", "whisper.cpp"),
			ModelPath:  strings.TrimSpace(os.Getenv("VOICENOTE_WHISPER_MODEL")),
			Language:   envOrDefault("VOICENOTE_WHISPER_LANGUAGE", "ja"),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("VOICENOTE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("VOICENOTE_AUDIO_INPUT_FORMAT", "avfoundation"),
			InputDevice:     envOrDefault("VOICENOTE_AUDIO_INPUT_DEVICE", ":0"),
			SampleRate:      envOrDefaultInt("VOICENOTE_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("VOICENOTE_CHANNELS", 1),
			TempDir:         envOrDefault("VOICENOTE_TEMP_DIR", os.TempDir()),
		},
		Hotkey: HotkeyConfig{
			TapThreshold:    envOrDefaultMillis("VOICENOTE_TAP_THRESHOLD_MS", 250),
			DoubleTapWindow: envOrDefaultMillis("VOICENOTE_DOUBLE_TAP_WINDOW_MS", 500),
		},
		Translation: TranslationConfig{
			SourceLang: envOrDefault("VOICENOTE_SOURCE_LANG", "ja"),
			TargetLang: envOrDefault("VOICENOTE_TARGET_LANG", "en"),
			Timeout:    envOrDefaultMillis("VOICENOTE_TRANSLATION_TIMEOUT_MS", 10000),
		},
		Refine: RefineConfig{
			Enabled: envOrDefaultBool("VOICENOTE_REFINE_ENABLED", true),
			APIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			BaseURL: strings.TrimSpace(os.Getenv("OPENAI_API_BASE")),
			Model:   envOrDefault("VOICENOTE_REFINE_MODEL", "gpt-4o-mini"),
			Preset:  envOrDefault("VOICENOTE_REFINE_PRESET", "plain"),
		},
		Output: OutputConfig{
			CopyToClipboard: envOrDefaultBool("VOICENOTE_COPY_TO_CLIPBOARD", true),
			SaveResults:     envOrDefaultBool("VOICENOTE_SAVE_RESULTS", false),
			SaveDir:         envOrDefault("VOICENOTE_SAVE_DIR", filepath.Join(home, "Documents", "VoiceNote")),
			PlainText:       envOrDefaultBool("VOICENOTE_OUTPUT_PLAIN", false),
		},
		Glossary: GlossaryConfig{
			Path: envOrDefault("VOICENOTE_GLOSSARY_FILE", filepath.Join(configDir, "glossary.json")),
		},
		Session: SessionConfig{
			Streaming:        envOrDefaultBool("VOICENOTE_STREAMING", true),
			ChunkSize:        envOrDefaultInt("VOICENOTE_AUDIO_CHUNK_SIZE", 4096),
			FinalizeDeadline: envOrDefaultMillis("VOICENOTE_FINALIZE_DEADLINE_MS", 1500),
			KeepRecordings:   envOrDefaultBool("VOICENOTE_KEEP_RECORDINGS", false),
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Translation.Timeout <= 0 {
		cfg.Translation.Timeout = 10 * time.Second
	}
	if cfg.Refine.APIKey == "" {
		cfg.Refine.Enabled = false
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envOrDefaultMillis(key string, fallback int) time.Duration {
	parsed := envOrDefaultInt(key, fallback)
	if parsed < 0 {
		parsed = fallback
	}
	return time.Duration(parsed) * time.Millisecond
}
