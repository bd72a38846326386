// Package audio handles PulseAudio device discovery, PCM capture, and playback.
package audio

import (
	"fmt"

	"github.com/jfreymuth/pulse"
)

const applicationName = "seline"

// connect opens a Pulse client tagged with the seline application name.
func connect(icon string) (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(applicationName),
		pulse.ClientApplicationIconName(icon),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}
