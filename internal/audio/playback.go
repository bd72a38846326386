package audio

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jfreymuth/pulse"
)

// Player plays PCM buffers on one Pulse sink.
type Player struct {
	sink      string
	mediaName string

	mu     sync.Mutex
	client *pulse.Client
	target *pulse.Sink
}

// NewPlayer returns a player for sink ("" or "default" selects the server default).
func NewPlayer(sink string, mediaName string) *Player {
	return &Player{sink: strings.TrimSpace(sink), mediaName: mediaName}
}

// Prepare connects to Pulse and resolves the sink. It is idempotent.
func (p *Player) Prepare(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return nil
	}

	client, err := connect("audio-speakers")
	if err != nil {
		return err
	}

	var target *pulse.Sink
	if p.sink == "" || strings.EqualFold(p.sink, "default") {
		target, err = client.DefaultSink()
	} else {
		target, err = client.SinkByID(p.sink)
	}
	if err != nil {
		client.Close()
		return fmt.Errorf("resolve sink %q: %w", p.sink, err)
	}

	p.client = client
	p.target = target
	return nil
}

// Play blocks until pcm has been played or ctx ends.
func (p *Player) Play(ctx context.Context, pcm PCM) error {
	if len(pcm.Data) < 2 {
		return nil
	}
	if err := p.Prepare(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	client, target := p.client, p.target
	p.mu.Unlock()

	channel := pulse.PlaybackMono
	if pcm.channels() == 2 {
		channel = pulse.PlaybackStereo
	}

	stream, err := client.NewPlayback(
		sampleReader(ctx, pcm.Samples()),
		channel,
		pulse.PlaybackSink(target),
		pulse.PlaybackSampleRate(pcm.SampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName(p.mediaName),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play stream: %w", err)
	}
	return ctx.Err()
}

// Close releases the Pulse client.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		p.client.Close()
		p.client = nil
		p.target = nil
	}
}

// sampleReader feeds samples to Pulse and ends the stream early when ctx is done.
func sampleReader(ctx context.Context, samples []int16) pulse.Reader {
	cursor := 0
	return pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil || cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})
}
