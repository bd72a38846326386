package capture

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/selineapp/seline/internal/audio"
	"github.com/selineapp/seline/internal/chat"
	"github.com/selineapp/seline/internal/config"
)

func TestWhisperUploadsWAV(t *testing.T) {
	var (
		model, language string
		header          []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		model = r.FormValue("model")
		language = r.FormValue("language")
		file, _, err := r.FormFile("file")
		if err == nil {
			header, _ = io.ReadAll(io.LimitReader(file, 4))
			_ = file.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"What is the weather?"}`))
	}))
	defer srv.Close()

	cfg := config.Default().ASR
	whisper := NewWhisper(chat.NewClient(chat.ClientOptions{APIKey: "sk", BaseURL: srv.URL}), cfg)

	text, err := whisper.Transcribe(context.Background(), audio.PCMFromSamples(audio.CaptureSampleRate, []int16{1, 2, 3}))
	require.NoError(t, err)
	require.Equal(t, "What is the weather?", text)
	require.Equal(t, "whisper-1", model)
	require.Equal(t, "en", language)
	require.Equal(t, "RIFF", string(header))
}

func TestWhisperReportsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer srv.Close()

	whisper := NewWhisper(chat.NewClient(chat.ClientOptions{BaseURL: srv.URL}), config.Default().ASR)
	_, err := whisper.Transcribe(context.Background(), audio.PCMFromSamples(audio.CaptureSampleRate, []int16{1}))
	require.ErrorContains(t, err, "transcription request")
}
