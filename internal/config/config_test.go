package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DEEPGRAM_API_KEY", "DEEPGRAM_MODEL", "VOICENOTE_STREAMING",
		"VOICENOTE_TRANSLATION_TIMEOUT_MS", "OPENAI_API_KEY",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Deepgram.Model != "nova-2" {
		t.Fatalf("unexpected model default: %q", cfg.Deepgram.Model)
	}
	if cfg.Translation.Timeout != 10*time.Second {
		t.Fatalf("unexpected timeout default: %v", cfg.Translation.Timeout)
	}
	if cfg.Hotkey.TapThreshold != 250*time.Millisecond || cfg.Hotkey.DoubleTapWindow != 500*time.Millisecond {
		t.Fatalf("unexpected hotkey defaults: %+v", cfg.Hotkey)
	}
	if !cfg.Session.Streaming {
		t.Fatal("streaming should default to on")
	}
	if cfg.Refine.Enabled {
		t.Fatal("refinement must be disabled without an API key")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DEEPGRAM_MODEL", "nova-3")
	t.Setenv("VOICENOTE_SAMPLE_RATE", "48000")
	t.Setenv("VOICENOTE_STREAMING", "off")
	t.Setenv("VOICENOTE_TRANSLATION_TIMEOUT_MS", "2500")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VOICENOTE_REFINE_ENABLED", "yes")
	t.Setenv("VOICENOTE_OUTPUT_PLAIN", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Deepgram.Model != "nova-3" {
		t.Fatalf("model override ignored: %q", cfg.Deepgram.Model)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Fatalf("sample rate override ignored: %d", cfg.Audio.SampleRate)
	}
	if cfg.Session.Streaming {
		t.Fatal("streaming override ignored")
	}
	if cfg.Translation.Timeout != 2500*time.Millisecond {
		t.Fatalf("timeout override ignored: %v", cfg.Translation.Timeout)
	}
	if !cfg.Refine.Enabled {
		t.Fatal("refinement should be enabled with key present")
	}
	if !cfg.Output.PlainText {
		t.Fatal("plain-text output override ignored")
	}
}

func TestEnvOrDefaultHelpers(t *testing.T) {
	t.Setenv("VN_TEST_INT", "not-a-number")
	if got := envOrDefaultInt("VN_TEST_INT", 7); got != 7 {
		t.Fatalf("invalid int must fall back, got %d", got)
	}

	t.Setenv("VN_TEST_BOOL", "banana")
	if got := envOrDefaultBool("VN_TEST_BOOL", true); !got {
		t.Fatal("invalid bool must fall back")
	}

	t.Setenv("VN_TEST_MS", "-5")
	if got := envOrDefaultMillis("VN_TEST_MS", 100); got != 100*time.Millisecond {
		t.Fatalf("negative duration must fall back, got %v", got)
	}
}
