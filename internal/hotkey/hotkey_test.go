package hotkey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
	"github.com/fukudafukuo/VoiceNote/internal/ports"
)

func tap(d *Detector, at time.Time, held time.Duration) {
	d.Handle(ports.KeyTransition{Pressed: true, At: at})
	d.Handle(ports.KeyTransition{Pressed: false, At: at.Add(held)})
}

func TestDoubleTapFiresOnce(t *testing.T) {
	t.Parallel()

	fired := 0
	d := NewDetector(Config{}, func() { fired++ })

	base := time.Unix(0, 0)
	tap(d, base, 100*time.Millisecond)
	tap(d, base.Add(300*time.Millisecond), 100*time.Millisecond)

	if fired != 1 {
		t.Fatalf("expected exactly one activation, got %d", fired)
	}
}

func TestTripleTapFiresOnce(t *testing.T) {
	t.Parallel()

	fired := 0
	d := NewDetector(Config{}, func() { fired++ })

	base := time.Unix(0, 0)
	tap(d, base, 50*time.Millisecond)
	tap(d, base.Add(200*time.Millisecond), 50*time.Millisecond)
	tap(d, base.Add(400*time.Millisecond), 50*time.Millisecond)

	if fired != 1 {
		t.Fatalf("expected exactly one activation for three rapid taps, got %d", fired)
	}
}

func TestLongHoldIsNotATap(t *testing.T) {
	t.Parallel()

	fired := 0
	d := NewDetector(Config{}, func() { fired++ })

	base := time.Unix(0, 0)
	tap(d, base, 400*time.Millisecond)
	tap(d, base.Add(500*time.Millisecond), 400*time.Millisecond)

	if fired != 0 {
		t.Fatalf("long holds must not activate, got %d", fired)
	}
}

func TestSlowTapsDoNotActivate(t *testing.T) {
	t.Parallel()

	fired := 0
	d := NewDetector(Config{}, func() { fired++ })

	base := time.Unix(0, 0)
	tap(d, base, 100*time.Millisecond)
	tap(d, base.Add(2*time.Second), 100*time.Millisecond)
	tap(d, base.Add(4*time.Second), 100*time.Millisecond)

	if fired != 0 {
		t.Fatalf("taps outside the double-tap window must not activate, got %d", fired)
	}
}

func TestFourTapsFireTwice(t *testing.T) {
	t.Parallel()

	fired := 0
	d := NewDetector(Config{}, func() { fired++ })

	base := time.Unix(0, 0)
	for i := 0; i < 4; i++ {
		tap(d, base.Add(time.Duration(i)*200*time.Millisecond), 50*time.Millisecond)
	}

	if fired != 2 {
		t.Fatalf("expected two activations for four rapid taps, got %d", fired)
	}
}

type deniedKeySource struct{}

func (deniedKeySource) Attach(ctx context.Context, handler func(ports.KeyTransition)) error {
	return errors.New("accessibility permission denied")
}

type captureSink struct {
	errors []string
}

func (s *captureSink) SessionStateChanged(domain.SessionState, domain.SessionStateReason) {}
func (s *captureSink) ElapsedDuration(float64)                                            {}
func (s *captureSink) PartialTranscript(string)                                           {}
func (s *captureSink) IntermediateResult(string)                                          {}
func (s *captureSink) FinalResult(domain.RunResult)                                       {}
func (s *captureSink) TranslationRequested(string)                                        {}
func (s *captureSink) InvalidateTranslation()                                             {}
func (s *captureSink) SessionError(code domain.ErrorCode, detail string) {
	s.errors = append(s.errors, detail)
}

func TestTriggerReportsUnavailabilityOnce(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	trigger := NewTrigger(deniedKeySource{}, NewDetector(Config{}, func() {}), sink)

	err := trigger.Run(context.Background())
	if !errors.Is(err, domain.ErrHotkeyUnavailable) {
		t.Fatalf("expected ErrHotkeyUnavailable, got %v", err)
	}
	if len(sink.errors) != 1 {
		t.Fatalf("expected one unavailability report, got %d", len(sink.errors))
	}
}
