package hotkey

import (
	"context"
	"fmt"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
	"github.com/fukudafukuo/VoiceNote/internal/ports"
)

// PlatformSource attaches to the OS global input stream for the designated
// key. Platforms without a supported global key hook report unavailability
// from Attach; the trigger surfaces that once and the UI keeps working
// through the bound toggle method.
type PlatformSource struct{}

func NewPlatformSource() *PlatformSource {
	return &PlatformSource{}
}

func (s *PlatformSource) Attach(ctx context.Context, handler func(ports.KeyTransition)) error {
	return fmt.Errorf("%w: global key capture is not supported on this platform", domain.ErrHotkeyUnavailable)
}
