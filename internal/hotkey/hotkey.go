// Package hotkey turns press/release transitions of one designated modifier
// key into a single activation signal on a double tap.
package hotkey

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
	"github.com/fukudafukuo/VoiceNote/internal/ports"
)

const (
	DefaultTapThreshold    = 250 * time.Millisecond
	DefaultDoubleTapWindow = 500 * time.Millisecond
)

// Config holds the tap timing thresholds.
type Config struct {
	TapThreshold    time.Duration
	DoubleTapWindow time.Duration
}

// Detector consumes key transitions for the designated key and fires the
// activation callback exactly once per double tap. A third rapid tap does
// not fire again because the tap anchor is cleared on activation.
type Detector struct {
	cfg      Config
	activate func()

	mu      sync.Mutex
	pressAt time.Time
	lastTap time.Time
}

func NewDetector(cfg Config, activate func()) *Detector {
	if cfg.TapThreshold <= 0 {
		cfg.TapThreshold = DefaultTapThreshold
	}
	if cfg.DoubleTapWindow <= 0 {
		cfg.DoubleTapWindow = DefaultDoubleTapWindow
	}
	return &Detector{cfg: cfg, activate: activate}
}

// Handle processes one transition. Only a release shorter than the tap
// threshold counts as a tap; two taps inside the double-tap window activate.
func (d *Detector) Handle(t ports.KeyTransition) {
	d.mu.Lock()

	if t.Pressed {
		d.pressAt = t.At
		d.mu.Unlock()
		return
	}

	fire := false
	if !d.pressAt.IsZero() && t.At.Sub(d.pressAt) < d.cfg.TapThreshold {
		if !d.lastTap.IsZero() && t.At.Sub(d.lastTap) < d.cfg.DoubleTapWindow {
			d.lastTap = time.Time{}
			fire = true
		} else {
			d.lastTap = t.At
		}
	}
	d.mu.Unlock()

	if fire {
		d.activate()
	}
}

// Trigger binds a detector to a global key source.
type Trigger struct {
	source   ports.KeySource
	detector *Detector
	events   ports.EventSink
}

func NewTrigger(source ports.KeySource, detector *Detector, events ports.EventSink) *Trigger {
	return &Trigger{source: source, detector: detector, events: events}
}

// Run attaches to the input stream and blocks until ctx is done. When the
// stream cannot be attached (typically missing accessibility permission) the
// unavailability is reported once and no retry is attempted.
func (t *Trigger) Run(ctx context.Context) error {
	if err := t.source.Attach(ctx, t.detector.Handle); err != nil {
		t.events.SessionError(domain.ErrorCodeHotkey, fmt.Sprintf("global hotkey disabled: %v", err))
		return fmt.Errorf("%w: %v", domain.ErrHotkeyUnavailable, err)
	}
	return nil
}
