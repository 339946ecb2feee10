package recog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
	"github.com/fukudafukuo/VoiceNote/internal/ports"
)

// TranscribeFile runs one-shot batch recognition over a finished recording.
func TranscribeFile(ctx context.Context, engine ports.SpeechEngine, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("recording not readable: %w", err)
	}

	text, err := engine.TranscribeFile(ctx, path)
	if err != nil {
		if errors.Is(err, domain.ErrRecognitionUnauthorized) || errors.Is(err, domain.ErrRecognitionEngine) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrRecognitionEngine, err)
	}
	return strings.TrimSpace(text), nil
}
