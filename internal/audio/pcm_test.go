package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPCMSamplesRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768}
	pcm := PCMFromSamples(CaptureSampleRate, samples)
	require.Len(t, pcm.Data, 10)
	require.Equal(t, samples, pcm.Samples())
}

func TestPCMDuration(t *testing.T) {
	pcm := PCM{SampleRate: CaptureSampleRate, Channels: 1, Data: make([]byte, 2*CaptureSampleRate)}
	require.Equal(t, time.Second, pcm.Duration())

	stereo := PCM{SampleRate: SpeechSampleRate, Channels: 2, Data: make([]byte, 2*SpeechSampleRate)}
	require.Equal(t, 500*time.Millisecond, stereo.Duration())

	require.Zero(t, PCM{}.Duration())
}

func TestWriteWAVHeader(t *testing.T) {
	pcm := PCM{SampleRate: CaptureSampleRate, Data: []byte{0x01, 0x00, 0xFF, 0x7F}}

	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, pcm))
	data := buf.Bytes()
	require.Len(t, data, 44+len(pcm.Data))

	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))
	require.Equal(t, "fmt ", string(data[12:16]))
	require.Equal(t, "data", string(data[36:40]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]))
	require.Equal(t, uint32(CaptureSampleRate), binary.LittleEndian.Uint32(data[24:28]))
	require.Equal(t, uint32(CaptureSampleRate*2), binary.LittleEndian.Uint32(data[28:32]))
	require.Equal(t, uint32(len(pcm.Data)), binary.LittleEndian.Uint32(data[40:44]))
	require.Equal(t, pcm.Data, data[44:])

	require.Equal(t, data, pcm.WAV())
}
