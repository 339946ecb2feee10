// Package pipeline turns a raw transcript into the delivered result:
// sanitization, token protection, glossary substitution, translation through
// the request broker, restoration and optional style refinement. At most one
// run is authoritative at a time; starting a new run supersedes the previous
// one, which finishes silently without firing callbacks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fukudafukuo/VoiceNote/internal/broker"
	"github.com/fukudafukuo/VoiceNote/internal/domain"
	"github.com/fukudafukuo/VoiceNote/internal/glossary"
	"github.com/fukudafukuo/VoiceNote/internal/ports"
	"github.com/fukudafukuo/VoiceNote/internal/textproc"
)

var (
	ErrRunSuperseded = errors.New("pipeline run superseded by a newer run")
	ErrNothingToDo   = errors.New("transcript is empty after sanitization")
)

// OrchestratorConfig controls translation, refinement and delivery.
type OrchestratorConfig struct {
	SourceLang string
	TargetLang string

	RefineEnabled bool
	RefinePreset  string

	CopyToClipboard bool
	SaveDir         string
	SaveResults     bool

	// PlainTextOutput flattens markdown markup out of the final text for
	// output surfaces that render it literally.
	PlainTextOutput bool
}

// Orchestrator owns the text pipeline.
type Orchestrator struct {
	broker    *broker.Broker
	glossary  *glossary.Manager
	refiner   ports.Refiner
	clipboard ports.Clipboard
	events    ports.EventSink
	cfg       OrchestratorConfig

	now func() time.Time

	mu      sync.Mutex
	current *run
}

type run struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
}

func NewOrchestrator(
	b *broker.Broker,
	g *glossary.Manager,
	refiner ports.Refiner,
	clipboard ports.Clipboard,
	events ports.EventSink,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.SourceLang == "" {
		cfg.SourceLang = "ja"
	}
	if cfg.TargetLang == "" {
		cfg.TargetLang = "en"
	}
	return &Orchestrator{
		broker:    b,
		glossary:  g,
		refiner:   refiner,
		clipboard: clipboard,
		events:    events,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run executes the pipeline over one transcript. It blocks until the run
// completes, fails, or is superseded by a newer Run call.
func (o *Orchestrator) Run(ctx context.Context, sourceText string) (domain.RunResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	active := &run{id: uuid.NewString(), ctx: runCtx, cancel: cancel}

	o.mu.Lock()
	previous := o.current
	o.current = active
	o.mu.Unlock()

	if previous != nil {
		previous.cancel()
	}
	defer o.finish(active)

	sanitized := textproc.Sanitize(sourceText)
	if strings.TrimSpace(sanitized) == "" {
		return domain.RunResult{}, ErrNothingToDo
	}

	protected := textproc.Protect(sanitized)
	pretranslate, placeholders := o.glossary.ApplyBefore(protected.Text)

	o.events.SessionStateChanged(domain.SessionStateProcessing, domain.SessionReasonTranslating)
	translated, err := o.broker.Submit(runCtx, pretranslate, o.cfg.SourceLang, o.cfg.TargetLang)
	if err != nil {
		if o.superseded(active) {
			return domain.RunResult{}, ErrRunSuperseded
		}
		o.events.SessionError(domain.ErrorCodeTranslation, translationErrorDetail(err))
		return domain.RunResult{}, err
	}
	if o.superseded(active) {
		return domain.RunResult{}, ErrRunSuperseded
	}

	restored := textproc.Restore(o.glossary.ApplyAfter(translated, placeholders), protected.Tokens)
	o.events.IntermediateResult(restored)

	final := restored
	refined := false
	if o.cfg.RefineEnabled && o.refiner != nil {
		o.events.SessionStateChanged(domain.SessionStateProcessing, domain.SessionReasonRefining)
		adjusted, err := o.refiner.AdjustStyle(runCtx, restored, o.cfg.RefinePreset)
		switch {
		case o.superseded(active):
			return domain.RunResult{}, ErrRunSuperseded
		case err != nil:
			// Refinement is best-effort; the intermediate text stands.
			o.events.SessionError(domain.ErrorCodeRefinement, err.Error())
		default:
			final = adjusted
			refined = true
		}
	}

	if o.cfg.PlainTextOutput {
		final = textproc.StripMarkdown(final)
	}

	result := domain.RunResult{
		RunID:        active.id,
		SourceText:   sourceText,
		Intermediate: restored,
		FinalText:    final,
		Refined:      refined,
	}

	// Last supersession check before anything leaves the process; a run
	// superseded past this point has already won the race.
	if o.superseded(active) {
		return domain.RunResult{}, ErrRunSuperseded
	}
	o.deliver(runCtx, &result)
	o.events.FinalResult(result)
	o.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonResultDelivered)
	return result, nil
}

// CancelCurrent aborts the active run, if any.
func (o *Orchestrator) CancelCurrent() {
	o.mu.Lock()
	active := o.current
	o.current = nil
	o.mu.Unlock()

	if active != nil {
		active.cancel()
		o.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonRunSuperseded)
	}
}

func (o *Orchestrator) superseded(active *run) bool {
	if active.ctx.Err() != nil {
		return true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current != active
}

func (o *Orchestrator) finish(active *run) {
	active.cancel()
	o.mu.Lock()
	if o.current == active {
		o.current = nil
	}
	o.mu.Unlock()
}

// deliver copies the final text to the clipboard and exports it as markdown,
// both behind config flags. Delivery failures are reported but do not fail
// the run.
func (o *Orchestrator) deliver(ctx context.Context, result *domain.RunResult) {
	if o.cfg.CopyToClipboard && o.clipboard != nil {
		if err := o.clipboard.SetText(ctx, result.FinalText); err != nil {
			o.events.SessionError(domain.ErrorCodeClipboard, err.Error())
		} else {
			result.Copied = true
		}
	}

	if o.cfg.SaveResults && o.cfg.SaveDir != "" {
		path, err := o.saveMarkdown(result.FinalText)
		if err != nil {
			o.events.SessionError(domain.ErrorCodeExport, err.Error())
		} else {
			result.SavedPath = path
		}
	}
}

func (o *Orchestrator) saveMarkdown(text string) (string, error) {
	if err := os.MkdirAll(o.cfg.SaveDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	name := "voicenote_" + o.now().Format("20060102_150405") + ".md"
	path := filepath.Join(o.cfg.SaveDir, name)
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write result file: %w", err)
	}
	return path, nil
}

func translationErrorDetail(err error) string {
	switch {
	case errors.Is(err, domain.ErrTranslationUnavailable):
		return "translation is not available yet"
	case errors.Is(err, domain.ErrTranslationTimeout):
		return "translation timed out"
	case errors.Is(err, domain.ErrTranslationCancelled):
		return "translation was cancelled"
	default:
		return err.Error()
	}
}
