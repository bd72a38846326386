package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"
)

// Sample rates used by seline streams.
const (
	CaptureSampleRate = 16000
	SpeechSampleRate  = 24000
)

// PCM is signed 16-bit little-endian interleaved audio.
type PCM struct {
	SampleRate int
	Channels   int
	Data       []byte
}

func (p PCM) channels() int {
	if p.Channels <= 0 {
		return 1
	}
	return p.Channels
}

// Duration reports the playback length of p.
func (p PCM) Duration() time.Duration {
	if p.SampleRate <= 0 {
		return 0
	}
	frames := len(p.Data) / (2 * p.channels())
	return time.Duration(frames) * time.Second / time.Duration(p.SampleRate)
}

// Samples decodes p into int16 samples. A trailing odd byte is dropped.
func (p PCM) Samples() []int16 {
	out := make([]int16, len(p.Data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(p.Data[2*i:]))
	}
	return out
}

// PCMFromSamples encodes mono samples at rate.
func PCMFromSamples(rate int, samples []int16) PCM {
	data := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(s))
	}
	return PCM{SampleRate: rate, Channels: 1, Data: data}
}

// WriteWAV writes p with a minimal RIFF/WAVE header.
func WriteWAV(w io.Writer, p PCM) error {
	const bitsPerSample = 16
	channels := p.channels()
	blockAlign := channels * bitsPerSample / 8

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(p.Data)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(p.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(p.SampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(p.Data)))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(p.Data)
	return err
}

// WAV renders p as an in-memory WAV file.
func (p PCM) WAV() []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(p.Data))
	_ = WriteWAV(&buf, p)
	return buf.Bytes()
}
