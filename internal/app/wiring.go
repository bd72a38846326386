package app

import (
	"log/slog"

	"github.com/selineapp/seline/internal/audio"
	"github.com/selineapp/seline/internal/capture"
	"github.com/selineapp/seline/internal/chat"
	"github.com/selineapp/seline/internal/config"
	"github.com/selineapp/seline/internal/indicator"
	"github.com/selineapp/seline/internal/output"
	"github.com/selineapp/seline/internal/speech"
	"github.com/selineapp/seline/internal/voice"
)

// runtime is one wired voice pipeline plus the resources it owns.
type runtime struct {
	pipeline *voice.Pipeline
	closers  []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// buildRuntime wires the chat backend, speech, capture, indicator, and
// clipboard into a pipeline that reports to observer.
func buildRuntime(cfg config.Config, logger *slog.Logger, observer voice.Observer) *runtime {
	rt := &runtime{}

	client := chat.NewClient(chat.ClientOptions{
		APIKey:  cfg.Chat.APIKey,
		BaseURL: cfg.Chat.BaseURL,
	})

	var speaker voice.Speaker = speech.Silent{}
	if cfg.Speech.Enable {
		player := audio.NewPlayer(cfg.Speech.Sink, "seline speech")
		engine := speech.NewEngine(
			speech.NewOpenAISynthesizer(client, cfg.Speech.Model, cfg.Speech.Voice, cfg.Speech.Speed),
			player,
			logger,
		)
		speaker = engine
		rt.closers = append(rt.closers, player.Close, engine.Stop)
	}

	recorder := capture.NewRecorder(
		capture.PulseOpener(cfg.Audio, logger),
		capture.NewWhisper(client, cfg.ASR),
		capture.Options{
			InterimInterval: millis(cfg.ASR.InterimIntervalMS),
			AudioDump:       cfg.Debug.EnableAudioDump,
			Logger:          logger,
		},
	)

	cuePlayer := audio.NewPlayer(cfg.Speech.Sink, "seline cue")
	desktop := indicator.NewDesktop(cfg.Indicator, cuePlayer, logger)
	rt.closers = append(rt.closers, cuePlayer.Close, desktop.Wait)

	opts := voice.Options{
		Backend:      chat.NewOpenAI(client, cfg.Chat.Model, millis(cfg.Chat.RequestTimeoutMS)),
		Recorder:     recorder,
		Speaker:      speaker,
		Indicator:    desktop,
		Observer:     observer,
		Logger:       logger,
		SystemPrompt: cfg.Chat.SystemPrompt,
		Temperature:  cfg.Chat.Temperature,
		Overlap:      voice.OverlapPolicy(cfg.Voice.Overlap),
		MaxRecording: millis(cfg.Capture.MaxDurationMS),
	}
	if clip := output.NewClipboard(cfg.Clipboard, logger); clip != nil {
		opts.Sink = clip
	}

	rt.pipeline = voice.New(opts)
	rt.closers = append(rt.closers, rt.pipeline.StopAll)
	return rt
}
