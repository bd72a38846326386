//go:build integration

package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPulseListingIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sources, err := ListDevices(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sources)

	sinks, err := ListSinks(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sinks)
}

func TestPlayerIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	player := NewPlayer("default", "seline integration")
	defer player.Close()
	require.NoError(t, player.Play(ctx, PCMFromSamples(SpeechSampleRate, make([]int16, SpeechSampleRate/10))))
}
