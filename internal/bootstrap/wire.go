// Package bootstrap assembles the runtime dependency graph.
package bootstrap

import (
	"context"

	"github.com/fukudafukuo/VoiceNote/internal/audio"
	"github.com/fukudafukuo/VoiceNote/internal/broker"
	"github.com/fukudafukuo/VoiceNote/internal/config"
	"github.com/fukudafukuo/VoiceNote/internal/glossary"
	"github.com/fukudafukuo/VoiceNote/internal/hotkey"
	"github.com/fukudafukuo/VoiceNote/internal/pipeline"
	"github.com/fukudafukuo/VoiceNote/internal/ports"
	"github.com/fukudafukuo/VoiceNote/internal/recog"
	"github.com/fukudafukuo/VoiceNote/internal/recog/deepgram"
	"github.com/fukudafukuo/VoiceNote/internal/recog/whispercli"
	"github.com/fukudafukuo/VoiceNote/internal/refine"
)

// Services is the assembled runtime graph.
type Services struct {
	Config     config.Config
	Controller *pipeline.Controller
	Broker     *broker.Broker
	Glossary   *glossary.Manager
	Trigger    *hotkey.Trigger
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	audio.CleanupStale(cfg.Audio.TempDir)

	manager, err := glossary.NewManager(glossary.NewJSONStore(cfg.Glossary.Path))
	if err != nil {
		return Services{}, err
	}

	requestBroker := broker.New(eventSink, cfg.Translation.Timeout)

	var refiner ports.Refiner
	if cfg.Refine.Enabled {
		refiner = refine.NewRefiner(refine.Config{
			APIKey:  cfg.Refine.APIKey,
			BaseURL: cfg.Refine.BaseURL,
			Model:   cfg.Refine.Model,
		})
	}

	orchestrator := pipeline.NewOrchestrator(
		requestBroker,
		manager,
		refiner,
		clipboard,
		eventSink,
		pipeline.OrchestratorConfig{
			SourceLang:      cfg.Translation.SourceLang,
			TargetLang:      cfg.Translation.TargetLang,
			RefineEnabled:   cfg.Refine.Enabled,
			RefinePreset:    cfg.Refine.Preset,
			CopyToClipboard: cfg.Output.CopyToClipboard,
			SaveDir:         cfg.Output.SaveDir,
			SaveResults:     cfg.Output.SaveResults,
			PlainTextOutput: cfg.Output.PlainText,
		},
	)

	engine := speechEngine(cfg)
	captureMode := audio.ModeFileSink
	if cfg.Session.Streaming {
		captureMode = audio.ModeLiveTap
	}
	capture := audio.NewEngine(
		audio.NewFFmpegSource(cfg.Audio.RecorderCommand),
		eventSink,
		audio.Config{
			Mode: captureMode,
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			TempDir:   cfg.Audio.TempDir,
			ChunkSize: cfg.Session.ChunkSize,
		},
	)

	controller := pipeline.NewController(capture, engine, orchestrator, eventSink, pipeline.ControllerConfig{
		Streaming: cfg.Session.Streaming,
		Recog: recog.Config{
			Streaming: ports.StreamingConfig{
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       "linear16",
				Language:       cfg.Deepgram.Language,
				InterimResults: true,
			},
			FinalizeDeadline: cfg.Session.FinalizeDeadline,
		},
		KeepFiles: cfg.Session.KeepRecordings,
	})

	detector := hotkey.NewDetector(hotkey.Config{
		TapThreshold:    cfg.Hotkey.TapThreshold,
		DoubleTapWindow: cfg.Hotkey.DoubleTapWindow,
	}, func() {
		go func() { _ = controller.Toggle(context.Background()) }()
	})
	trigger := hotkey.NewTrigger(hotkey.NewPlatformSource(), detector, eventSink)

	return Services{
		Config:     cfg,
		Controller: controller,
		Broker:     requestBroker,
		Glossary:   manager,
		Trigger:    trigger,
	}, nil
}

// speechEngine picks the recognition backend: Deepgram for live streaming,
// local whisper for batch transcription of finished recordings.
func speechEngine(cfg config.Config) ports.SpeechEngine {
	if cfg.Session.Streaming {
		return deepgram.NewEngine(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
		})
	}
	return whispercli.NewEngine(whispercli.Config{
		BinaryPath: cfg.Whisper.BinaryPath,
		ModelPath:  cfg.Whisper.ModelPath,
		Language:   cfg.Whisper.Language,
	})
}
