package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// 20ms @ 16kHz mono s16
const fragmentBytes = 640

// Capture accumulates PCM from one selected Pulse source until stopped.
type Capture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	mu      sync.Mutex
	data    []byte
	stopped bool
	done    chan struct{}
}

// StartCapture creates and starts a 16kHz mono s16 record stream. The
// capture stops on its own when ctx ends.
func StartCapture(ctx context.Context, selected Device) (*Capture, error) {
	client, err := connect("audio-input-microphone")
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	c := newCapture(selected)
	c.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(c.onPCM), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(CaptureSampleRate),
		pulse.RecordBufferFragmentSize(fragmentBytes),
		pulse.RecordMediaName("seline voice query"),
	)
	if err != nil {
		_ = c.Stop()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	c.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Stop()
		case <-c.done:
		}
	}()

	return c, nil
}

func newCapture(device Device) *Capture {
	return &Capture{device: device, done: make(chan struct{})}
}

// Device returns the source being recorded.
func (c *Capture) Device() Device {
	return c.device
}

// BytesCaptured reports total bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.data))
}

// PCM returns a snapshot of everything captured so far.
func (c *Capture) PCM() PCM {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PCM{SampleRate: CaptureSampleRate, Channels: 1, Data: append([]byte(nil), c.data...)}
}

// Done is closed once the capture has stopped.
func (c *Capture) Done() <-chan struct{} {
	return c.done
}

// Stop halts the stream and releases the Pulse client. Safe to call repeatedly.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.done)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

func (c *Capture) onPCM(buffer []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return 0, io.EOF
	}
	c.data = append(c.data, buffer...)
	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
