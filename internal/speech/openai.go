package speech

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/selineapp/seline/internal/audio"
)

// OpenAISynthesizer renders speech with the audio/speech endpoint as raw
// 24kHz mono PCM.
type OpenAISynthesizer struct {
	client *openai.Client
	model  string
	voice  string
	speed  float64
}

// NewOpenAISynthesizer returns a synthesizer for the given model and voice.
func NewOpenAISynthesizer(client *openai.Client, model string, voice string, speed float64) *OpenAISynthesizer {
	return &OpenAISynthesizer{client: client, model: model, voice: voice, speed: speed}
}

// Synthesize implements Synthesizer.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string) (audio.PCM, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return audio.PCM{SampleRate: audio.SpeechSampleRate, Channels: 1}, nil
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          s.speed,
	})
	if err != nil {
		return audio.PCM{}, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("read speech audio: %w", err)
	}
	return audio.PCM{SampleRate: audio.SpeechSampleRate, Channels: 1, Data: data}, nil
}
