package broker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
)

type recordingNotifier struct {
	mu          sync.Mutex
	requested   []string
	invalidated int
	wake        chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{wake: make(chan string, 64)}
}

func (n *recordingNotifier) TranslationRequested(id string) {
	n.mu.Lock()
	n.requested = append(n.requested, id)
	n.mu.Unlock()
	n.wake <- id
}

func (n *recordingNotifier) InvalidateTranslation() {
	n.mu.Lock()
	n.invalidated++
	n.mu.Unlock()
}

func (n *recordingNotifier) invalidations() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.invalidated
}

func TestSubmitBeforeContextReady(t *testing.T) {
	t.Parallel()

	b := New(newRecordingNotifier(), time.Second)
	_, err := b.Submit(context.Background(), "text", "ja", "en")
	if !errors.Is(err, domain.ErrTranslationUnavailable) {
		t.Fatalf("expected ErrTranslationUnavailable, got %v", err)
	}
}

func TestSubmitTakeComplete(t *testing.T) {
	t.Parallel()

	notifier := newRecordingNotifier()
	b := New(notifier, time.Second)
	b.MarkReady()

	go func() {
		id := <-notifier.wake
		req, ok := b.TakePending()
		if !ok || req.ID != id {
			t.Errorf("TakePending: ok=%v id=%q want %q", ok, req.ID, id)
			return
		}
		if req.Text != "今日は晴れです。" || req.SourceLang != "ja" || req.TargetLang != "en" {
			t.Errorf("unexpected request payload: %+v", req)
			return
		}
		b.Complete(req.ID, "It's sunny today.", nil)
	}()

	got, err := b.Submit(context.Background(), "今日は晴れです。", "ja", "en")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if got != "It's sunny today." {
		t.Fatalf("unexpected translation: %q", got)
	}
}

func TestSubmitSupersedesPendingRequest(t *testing.T) {
	t.Parallel()

	notifier := newRecordingNotifier()
	b := New(notifier, 2*time.Second)
	b.MarkReady()

	resultA := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), "first", "ja", "en")
		resultA <- err
	}()
	<-notifier.wake

	go func() {
		id := <-notifier.wake
		req, ok := b.TakePending()
		if !ok || req.ID != id || req.Text != "second" {
			t.Errorf("expected superseding request in slot, got ok=%v %+v", ok, req)
			return
		}
		b.Complete(req.ID, "SECOND", nil)
	}()

	got, err := b.Submit(context.Background(), "second", "ja", "en")
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if got != "SECOND" {
		t.Fatalf("unexpected translation: %q", got)
	}

	select {
	case err := <-resultA:
		if !errors.Is(err, domain.ErrTranslationCancelled) {
			t.Fatalf("first request: expected cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("first request was never resolved")
	}
}

func TestSubmitTimeoutInvalidatesSession(t *testing.T) {
	t.Parallel()

	notifier := newRecordingNotifier()
	b := New(notifier, 30*time.Millisecond)
	b.MarkReady()

	start := time.Now()
	_, err := b.Submit(context.Background(), "text", "ja", "en")
	if !errors.Is(err, domain.ErrTranslationTimeout) {
		t.Fatalf("expected ErrTranslationTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("submit blocked too long after timeout: %v", elapsed)
	}
	if notifier.invalidations() != 1 {
		t.Fatalf("expected one session invalidation, got %d", notifier.invalidations())
	}

	// A late completion for the expired id must be dropped silently.
	id := <-notifier.wake
	b.Complete(id, "late", nil)

	if _, ok := b.TakePending(); ok {
		t.Fatal("expired request still visible in slot")
	}
}

func TestCancelByIDDropsCompletion(t *testing.T) {
	t.Parallel()

	notifier := newRecordingNotifier()
	b := New(notifier, time.Second)
	b.MarkReady()

	result := make(chan error, 1)
	go func() {
		_, err := b.Submit(context.Background(), "text", "ja", "en")
		result <- err
	}()

	id := <-notifier.wake
	req, ok := b.TakePending()
	if !ok {
		t.Fatal("expected pending request")
	}
	b.Cancel(req.ID)

	select {
	case err := <-result:
		if !errors.Is(err, domain.ErrTranslationCancelled) {
			t.Fatalf("expected cancellation outcome, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled request was never resolved")
	}

	// Completion arriving after the cancel must be dropped.
	b.Complete(id, "late", nil)
	if notifier.invalidations() != 0 {
		t.Fatalf("cancel must not invalidate the session")
	}
}

func TestSubmitContextCancellation(t *testing.T) {
	t.Parallel()

	notifier := newRecordingNotifier()
	b := New(notifier, time.Second)
	b.MarkReady()

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := b.Submit(ctx, "text", "ja", "en")
		result <- err
	}()

	<-notifier.wake
	cancel()

	select {
	case err := <-result:
		if !errors.Is(err, domain.ErrTranslationCancelled) {
			t.Fatalf("expected cancellation outcome, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("submit did not return after context cancellation")
	}
}

// Every submitted request must resolve exactly once no matter how submit,
// take, complete, and cancel interleave. Submitters race against a consumer
// that randomly services, delays, or cancels; the test fails on any hung or
// double-taken request.
func TestExactlyOnceResolutionUnderRandomInterleaving(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(421))
	notifier := newRecordingNotifier()
	b := New(notifier, 50*time.Millisecond)
	b.MarkReady()

	const submissions = 60
	stop := make(chan struct{})
	taken := make(map[string]int)
	var takenMu sync.Mutex

	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		localRNG := rand.New(rand.NewSource(843))
		for {
			select {
			case <-stop:
				return
			case <-notifier.wake:
			}

			req, ok := b.TakePending()
			if !ok {
				continue
			}

			takenMu.Lock()
			taken[req.ID]++
			if taken[req.ID] > 1 {
				t.Errorf("request %s taken twice", req.ID)
			}
			takenMu.Unlock()

			switch localRNG.Intn(4) {
			case 0:
				b.Complete(req.ID, "t:"+req.Text, nil)
			case 1:
				time.Sleep(time.Duration(localRNG.Intn(3)) * time.Millisecond)
				b.Complete(req.ID, "t:"+req.Text, nil)
			case 2:
				b.Cancel(req.ID)
				b.Complete(req.ID, "t:"+req.Text, nil)
			case 3:
				// Never complete: the submitter's timeout must fire.
			}
		}
	}()

	var submitters sync.WaitGroup
	for i := 0; i < submissions; i++ {
		submitters.Add(1)
		delay := time.Duration(rng.Intn(8)) * time.Millisecond
		text := fmt.Sprintf("req-%d", i)
		go func() {
			defer submitters.Done()
			time.Sleep(delay)

			done := make(chan struct{})
			go func() {
				defer close(done)
				got, err := b.Submit(context.Background(), text, "ja", "en")
				switch {
				case err == nil:
					if got != "t:"+text {
						t.Errorf("request %q resolved with foreign result %q", text, got)
					}
				case errors.Is(err, domain.ErrTranslationCancelled):
				case errors.Is(err, domain.ErrTranslationTimeout):
				default:
					t.Errorf("request %q resolved with unexpected error %v", text, err)
				}
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Errorf("request %q leaked unresolved", text)
			}
		}()
	}

	submitters.Wait()
	close(stop)
	consumer.Wait()
}
