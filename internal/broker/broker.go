// Package broker mediates between pipeline callers and the external
// translation capability. Translation can only execute inside a
// presentation-owned context the core cannot call into directly, so the
// broker holds a single pending-request slot, wakes the external context
// through a notifier, and waits for it to take and complete the request.
package broker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
)

const DefaultTimeout = 10 * time.Second

// Request is one translation request occupying the pending slot.
type Request struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

// Notifier wakes the restricted execution context. TranslationRequested
// signals that the pending slot is occupied; InvalidateTranslation tells the
// context to discard and recreate its translation session state.
type Notifier interface {
	TranslationRequested(requestID string)
	InvalidateTranslation()
}

type outcome struct {
	text string
	err  error
}

// pending carries the completion slot of one request. The done channel is
// buffered and written at most once; whoever resolves first wins.
type pending struct {
	req  Request
	done chan outcome
}

func (p *pending) resolve(text string, err error) {
	select {
	case p.done <- outcome{text: text, err: err}:
	default:
	}
}

// Broker implements the pending-slot rendezvous with single-outstanding-
// request supersession, per-id cancellation, and timeout-triggered session
// invalidation. Every submitted request is resolved exactly once.
type Broker struct {
	notifier Notifier
	timeout  time.Duration

	mu        sync.Mutex
	ready     bool
	slot      *pending
	inflight  map[string]*pending
	cancelled map[string]struct{}
}

func New(notifier Notifier, timeout time.Duration) *Broker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Broker{
		notifier:  notifier,
		timeout:   timeout,
		inflight:  make(map[string]*pending),
		cancelled: make(map[string]struct{}),
	}
}

// MarkReady records that the restricted context has registered and can now
// service requests. Submissions before this fail fast.
func (b *Broker) MarkReady() {
	b.mu.Lock()
	b.ready = true
	b.mu.Unlock()
}

// Submit places a request into the pending slot and blocks until it is
// resolved. A request already occupying the slot is resolved with a
// cancellation outcome and evicted before the new one is stored.
func (b *Broker) Submit(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	b.mu.Lock()
	if !b.ready {
		b.mu.Unlock()
		return "", domain.ErrTranslationUnavailable
	}

	if prev := b.slot; prev != nil {
		b.slot = nil
		delete(b.inflight, prev.req.ID)
		b.cancelled[prev.req.ID] = struct{}{}
		prev.resolve("", domain.ErrTranslationCancelled)
	}

	p := &pending{
		req: Request{
			ID:         uuid.NewString(),
			Text:       text,
			SourceLang: sourceLang,
			TargetLang: targetLang,
		},
		done: make(chan outcome, 1),
	}
	b.slot = p
	b.inflight[p.req.ID] = p
	b.mu.Unlock()

	b.notifier.TranslationRequested(p.req.ID)

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case out := <-p.done:
		return out.text, out.err
	case <-timer.C:
		if b.expire(p) {
			b.notifier.InvalidateTranslation()
		}
	case <-ctx.Done():
		b.Cancel(p.req.ID)
	}

	// expire/Cancel resolved the completion slot; collect the outcome so the
	// caller observes exactly the resolution that won the race.
	out := <-p.done
	return out.text, out.err
}

// TakePending atomically reads and clears the pending slot. The restricted
// context calls this after being woken; ok is false when the slot is empty
// or the waiting request was already cancelled.
func (b *Broker) TakePending() (Request, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.slot
	if p == nil {
		return Request{}, false
	}
	b.slot = nil

	if _, gone := b.cancelled[p.req.ID]; gone {
		delete(b.cancelled, p.req.ID)
		delete(b.inflight, p.req.ID)
		return Request{}, false
	}
	return p.req, true
}

// Complete resolves a taken request. An id in the cancelled set is removed
// and the resolution attempt is dropped silently, preventing a second
// resolution of a request that timed out or was superseded mid-translation.
func (b *Broker) Complete(id string, text string, err error) {
	b.mu.Lock()
	if _, gone := b.cancelled[id]; gone {
		delete(b.cancelled, id)
		delete(b.inflight, id)
		b.mu.Unlock()
		return
	}
	p, ok := b.inflight[id]
	if ok {
		delete(b.inflight, id)
		if b.slot == p {
			b.slot = nil
		}
	}
	b.mu.Unlock()

	if ok {
		p.resolve(text, err)
	}
}

// Cancel marks a request cancelled by id and resolves it with a cancellation
// outcome. Safe to call for unknown ids.
func (b *Broker) Cancel(id string) {
	b.mu.Lock()
	p, ok := b.inflight[id]
	if ok {
		delete(b.inflight, id)
		if b.slot == p {
			b.slot = nil
		}
		b.cancelled[id] = struct{}{}
	}
	b.mu.Unlock()

	if ok {
		p.resolve("", domain.ErrTranslationCancelled)
	}
}

// expire resolves p with a timeout outcome. It reports false when p was
// already resolved, in which case no session invalidation is needed.
func (b *Broker) expire(p *pending) bool {
	b.mu.Lock()
	_, ok := b.inflight[p.req.ID]
	if ok {
		delete(b.inflight, p.req.ID)
		if b.slot == p {
			b.slot = nil
		}
		b.cancelled[p.req.ID] = struct{}{}
	}
	b.mu.Unlock()

	if ok {
		p.resolve("", domain.ErrTranslationTimeout)
	}
	return ok
}
