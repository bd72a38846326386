package capture

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/selineapp/seline/internal/audio"
	"github.com/selineapp/seline/internal/config"
)

// Whisper transcribes captures through the audio/transcriptions endpoint.
type Whisper struct {
	client *openai.Client
	cfg    config.ASRConfig
}

// NewWhisper returns a transcriber using cfg's model, language, and prompt.
func NewWhisper(client *openai.Client, cfg config.ASRConfig) *Whisper {
	return &Whisper{client: client, cfg: cfg}
}

// Transcribe implements Transcriber.
func (w *Whisper) Transcribe(ctx context.Context, pcm audio.PCM) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.cfg.Model,
		FilePath: "query.wav",
		Reader:   bytes.NewReader(pcm.WAV()),
		Language: w.cfg.Language,
		Prompt:   w.cfg.Prompt,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return resp.Text, nil
}
