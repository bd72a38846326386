package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/selineapp/seline/internal/audio"
)

type fakeStream struct {
	mu      sync.Mutex
	data    []byte
	stopped int
}

func (s *fakeStream) Device() audio.Device {
	return audio.Device{ID: "alsa_input.test", Description: "Test Mic"}
}

func (s *fakeStream) PCM() audio.PCM {
	s.mu.Lock()
	defer s.mu.Unlock()
	return audio.PCM{SampleRate: audio.CaptureSampleRate, Channels: 1, Data: append([]byte(nil), s.data...)}
}

func (s *fakeStream) BytesCaptured() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.data))
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return nil
}

func (s *fakeStream) feed(b ...byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, b...)
}

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, pcm audio.PCM) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeTranscriber) set(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
}

func openerFor(stream *fakeStream) Opener {
	return func(context.Context) (Stream, error) { return stream, nil }
}

func TestStartStopTranscribes(t *testing.T) {
	stream := &fakeStream{}
	asr := &fakeTranscriber{text: "  what is   the weather\n today "}
	rec := NewRecorder(openerFor(stream), asr, Options{})

	require.NoError(t, rec.Start(context.Background()))
	require.True(t, rec.Active())
	require.ErrorIs(t, rec.Start(context.Background()), ErrAlreadyStarted)

	stream.feed(1, 0, 2, 0)
	result, err := rec.Stop(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, "what is the weather today", result.Transcript)
	require.True(t, result.UserInitiated)
	require.Equal(t, "Test Mic (alsa_input.test)", result.AudioDevice)
	require.Equal(t, int64(4), result.BytesCaptured)
	require.Equal(t, 1, stream.stopped)
	require.Equal(t, "what is the weather today", rec.Text())
	require.False(t, rec.Active())
}

func TestStopWithoutAudioSkipsTranscription(t *testing.T) {
	asr := &fakeTranscriber{text: "ignored"}
	rec := NewRecorder(openerFor(&fakeStream{}), asr, Options{})

	require.NoError(t, rec.Start(context.Background()))
	result, err := rec.Stop(context.Background(), false)
	require.NoError(t, err)
	require.Empty(t, result.Transcript)
	require.False(t, result.UserInitiated)
	require.Zero(t, asr.calls)
}

func TestStopWhenNotStarted(t *testing.T) {
	rec := NewRecorder(openerFor(&fakeStream{}), &fakeTranscriber{}, Options{})
	_, err := rec.Stop(context.Background(), true)
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestStopReportsTranscriptionFailure(t *testing.T) {
	stream := &fakeStream{}
	rec := NewRecorder(openerFor(stream), &fakeTranscriber{err: errors.New("asr down")}, Options{})
	require.NoError(t, rec.Start(context.Background()))
	stream.feed(1, 2)

	result, err := rec.Stop(context.Background(), true)
	require.ErrorContains(t, err, "asr down")
	require.Equal(t, int64(2), result.BytesCaptured)
	require.False(t, rec.Active())
}

func TestStartPropagatesOpenFailure(t *testing.T) {
	rec := NewRecorder(func(context.Context) (Stream, error) {
		return nil, errors.New("no pulse")
	}, &fakeTranscriber{}, Options{})

	err := rec.Start(context.Background())
	require.ErrorContains(t, err, "no pulse")
	require.False(t, rec.Active())
}

func TestCancelIsIdempotentAndSkipsASR(t *testing.T) {
	stream := &fakeStream{}
	asr := &fakeTranscriber{text: "hello"}
	rec := NewRecorder(openerFor(stream), asr, Options{})

	require.NoError(t, rec.Cancel(context.Background()))
	require.NoError(t, rec.Start(context.Background()))
	stream.feed(1, 2)
	require.NoError(t, rec.Cancel(context.Background()))
	require.NoError(t, rec.Cancel(context.Background()))

	require.Zero(t, asr.calls)
	require.Equal(t, 1, stream.stopped)
	require.Empty(t, rec.Text())
}

func TestInterimRefreshPublishesText(t *testing.T) {
	stream := &fakeStream{}
	asr := &fakeTranscriber{text: "what is"}
	rec := NewRecorder(openerFor(stream), asr, Options{InterimInterval: 5 * time.Millisecond})

	require.NoError(t, rec.Start(context.Background()))
	stream.feed(1, 2)
	require.Eventually(t, func() bool { return rec.Text() == "what is" }, 2*time.Second, 5*time.Millisecond)

	asr.set("what is the time")
	result, err := rec.Stop(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, "what is the time", result.Transcript)
}

func TestAudioDumpWritesWAV(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	stream := &fakeStream{}
	rec := NewRecorder(openerFor(stream), &fakeTranscriber{text: "hi"}, Options{AudioDump: true})
	require.NoError(t, rec.Start(context.Background()))
	stream.feed(1, 0, 2, 0)
	_, err := rec.Stop(context.Background(), true)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(state, "seline", "debug", "audio-*.wav"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	stat, err := os.Stat(matches[0])
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
	require.Equal(t, int64(48), stat.Size())
}

func TestAudioDumpSkippedWhenDisabled(t *testing.T) {
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)

	stream := &fakeStream{}
	rec := NewRecorder(openerFor(stream), &fakeTranscriber{}, Options{})
	require.NoError(t, rec.Start(context.Background()))
	stream.feed(1, 0)
	require.NoError(t, rec.Cancel(context.Background()))

	matches, err := filepath.Glob(filepath.Join(state, "seline", "debug", "*.wav"))
	require.NoError(t, err)
	require.Empty(t, matches)
}
