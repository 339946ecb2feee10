package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fukudafukuo/VoiceNote/internal/domain"
	"github.com/fukudafukuo/VoiceNote/internal/ports"
)

// Mode selects the capture behavior for a session.
type Mode string

const (
	// ModeFileSink converts native input to canonical mono/16kHz and writes
	// a WAV file incrementally; Stop returns its path.
	ModeFileSink Mode = "file_sink"
	// ModeLiveTap forwards native buffers unmodified to the registered sink;
	// resampling is the recognition engine's concern.
	ModeLiveTap Mode = "live_tap"
)

const (
	canonicalRate     = 16000
	canonicalChannels = 1
	tempFilePrefix    = "voicenote_"
)

// Config controls one capture engine.
type Config struct {
	Mode         Mode
	Audio        ports.AudioConfig
	TempDir      string
	ChunkSize    int
	TickInterval time.Duration
}

// Engine owns the microphone stream. The audio device is exclusively held
// for the duration of one session; re-entrant Start is a no-op.
type Engine struct {
	source ports.AudioCapture
	events ports.EventSink
	cfg    Config

	mu      sync.Mutex
	sink    ports.BufferSink
	current *captureRun
}

type captureRun struct {
	session   ports.AudioSession
	writer    *wavWriter
	path      string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	gotData   bool
	runErr    error
}

func NewEngine(source ports.AudioCapture, events ports.EventSink, cfg Config) *Engine {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 500 * time.Millisecond
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeFileSink
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Engine{source: source, events: events, cfg: cfg}
}

// RegisterSink sets the live-tap consumer. Must be called before Start in
// live-tap mode.
func (e *Engine) RegisterSink(sink ports.BufferSink) {
	e.mu.Lock()
	e.sink = sink
	e.mu.Unlock()
}

// Start begins capture in the configured mode.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.current != nil {
		e.mu.Unlock()
		return nil
	}
	sink := e.sink
	e.mu.Unlock()

	if e.cfg.Mode == ModeLiveTap && sink == nil {
		return errors.New("live-tap capture requires a registered sink")
	}

	var writer *wavWriter
	var conv *converter
	var path string
	if e.cfg.Mode == ModeFileSink {
		var err error
		conv, err = newConverter(e.cfg.Audio.SampleRate, e.cfg.Audio.Channels)
		if err != nil {
			return err
		}
		f, err := os.CreateTemp(e.cfg.TempDir, tempFilePrefix+"*.wav")
		if err != nil {
			return fmt.Errorf("create recording file: %w", err)
		}
		path = f.Name()
		writer, err = newWAVWriter(f, canonicalRate, canonicalChannels)
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return err
		}
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	session, err := e.source.Start(sessionCtx, e.cfg.Audio)
	if err != nil {
		cancel()
		if writer != nil {
			_ = writer.Close()
			_ = os.Remove(path)
		}
		return err
	}

	run := &captureRun{
		session:   session,
		writer:    writer,
		path:      path,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	e.mu.Lock()
	e.current = run
	e.mu.Unlock()

	go e.pump(run, conv, sink)
	go e.tick(sessionCtx, run)
	return nil
}

// Stop ends capture. In file-sink mode it returns the finished file path, or
// empty when no audio arrived; in live-tap mode it returns empty.
func (e *Engine) Stop() (string, error) {
	e.mu.Lock()
	run := e.current
	e.current = nil
	e.mu.Unlock()

	if run == nil {
		return "", nil
	}

	stopErr := run.session.Stop()
	<-run.done
	run.cancel()

	if run.writer != nil {
		if err := run.writer.Close(); err != nil && stopErr == nil {
			stopErr = err
		}
		if !run.gotData {
			_ = os.Remove(run.path)
			return "", stopErr
		}
		return run.path, stopErr
	}
	return "", stopErr
}

// Active reports whether a capture session is running.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Elapsed returns the duration of the running session.
func (e *Engine) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return 0
	}
	return time.Since(e.current.startedAt)
}

func (e *Engine) pump(run *captureRun, conv *converter, sink ports.BufferSink) {
	defer close(run.done)

	buf := make([]byte, e.cfg.ChunkSize)
	var seq int64
	for {
		n, err := run.session.Read(buf)
		if n > 0 {
			run.gotData = true
			switch e.cfg.Mode {
			case ModeFileSink:
				if werr := run.writer.WriteSamples(conv.convert(buf[:n])); werr != nil {
					run.runErr = werr
					e.events.SessionError(domain.ErrorCodeCapture, fmt.Sprintf("recording write failed: %v", werr))
					return
				}
			case ModeLiveTap:
				pcm := append([]byte(nil), buf[:n]...)
				sink.OnBuffer(domain.AudioBuffer{
					PCM:        pcm,
					SampleRate: e.cfg.Audio.SampleRate,
					Channels:   e.cfg.Audio.Channels,
					Seq:        seq,
				})
				seq++
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.events.SessionError(domain.ErrorCodeCapture, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}

// tick samples elapsed duration while active, for display only.
func (e *Engine) tick(ctx context.Context, run *captureRun) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-run.done:
			return
		case now := <-ticker.C:
			e.events.ElapsedDuration(now.Sub(run.startedAt).Seconds())
		}
	}
}

// CleanupStale removes recordings left behind by a previous crash.
func CleanupStale(dir string) {
	if dir == "" {
		dir = os.TempDir()
	}
	matches, err := filepath.Glob(filepath.Join(dir, tempFilePrefix+"*.wav"))
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

// converter downmixes and decimates native s16le PCM into the canonical
// mono/16kHz format. Only integer downsampling ratios are supported; the
// recorder is normally asked for 16kHz directly and no resampling happens.
type converter struct {
	channels int
	ratio    int
}

func newConverter(sampleRate, channels int) (*converter, error) {
	if sampleRate <= 0 {
		sampleRate = canonicalRate
	}
	if channels <= 0 {
		channels = canonicalChannels
	}
	if sampleRate%canonicalRate != 0 {
		return nil, fmt.Errorf("%w: cannot convert %d Hz to %d Hz", domain.ErrConverterSetup, sampleRate, canonicalRate)
	}
	return &converter{channels: channels, ratio: sampleRate / canonicalRate}, nil
}

func (c *converter) convert(pcm []byte) []int16 {
	frameBytes := c.channels * 2
	frames := len(pcm) / frameBytes

	out := make([]int16, 0, frames/c.ratio+1)
	for frame := 0; frame < frames; frame += c.ratio {
		sum := 0
		for ch := 0; ch < c.channels; ch++ {
			offset := frame*frameBytes + ch*2
			sum += int(int16(binary.LittleEndian.Uint16(pcm[offset:])))
		}
		out = append(out, int16(sum/c.channels))
	}
	return out
}
