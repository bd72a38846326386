package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device describes one Pulse source or sink.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Label formats device metadata for logs and status output.
func (d Device) Label() string {
	description := strings.TrimSpace(d.Description)
	id := strings.TrimSpace(d.ID)
	switch {
	case description == "":
		return id
	case id == "":
		return description
	default:
		return fmt.Sprintf("%s (%s)", description, id)
	}
}

// Selection is the resolved capture source plus an optional fallback warning.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns Pulse input sources with default/availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := connect("audio-input-microphone")
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var reply pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &reply); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(reply))
	for _, source := range reply {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       deviceState(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultSource.ID(),
		})
	}
	return devices, nil
}

// ListSinks returns Pulse output sinks used for speech playback.
func ListSinks(_ context.Context) ([]Device, error) {
	client, err := connect("audio-speakers")
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("read default sink: %w", err)
	}

	var reply pulseproto.GetSinkInfoListReply
	if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &reply); err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}

	devices := make([]Device, 0, len(reply))
	for _, sink := range reply {
		if sink == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          sink.SinkName,
			Description: sink.Device,
			State:       deviceState(sink.State),
			Available:   true,
			Muted:       sink.Mute,
			Default:     sink.SinkName == defaultSink.ID(),
		})
	}
	return devices, nil
}

// SelectDevice resolves audio.input/audio.fallback preferences against live sources.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// FindDevice returns the first device matching term, or the default device
// when term is empty or "default".
func FindDevice(devices []Device, term string) (Device, bool) {
	term = normalizeTerm(term)
	for _, dev := range devices {
		if term == "" && dev.Default {
			return dev, true
		}
		if term != "" && deviceMatches(dev, term) {
			return dev, true
		}
	}
	return Device{}, false
}

func normalizeTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "default" {
		return ""
	}
	return term
}

func usable(dev Device) bool {
	return dev.Available && !dev.Muted
}

func unusableReason(dev Device) string {
	if dev.Muted {
		return "muted"
	}
	return "unavailable"
}

// selectDeviceFromList applies the selection policy to a pre-fetched list:
// the preferred input when usable, else the fallback (or default) source.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	input = normalizeTerm(input)
	fallback = normalizeTerm(fallback)

	primary, ok := FindDevice(devices, input)
	if !ok {
		if input == "" {
			return Selection{}, errors.New("default audio source is unavailable")
		}
		return Selection{}, fmt.Errorf("audio.input %q did not match any device", input)
	}
	if usable(primary) {
		return Selection{Device: primary}, nil
	}

	reason := unusableReason(primary)
	alternate, ok := FindDevice(devices, fallback)
	if !ok {
		if fallback != "" {
			return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, reason, fallback)
		}
		return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: default audio source is unavailable", primary.ID, reason)
	}
	if !usable(alternate) {
		return Selection{}, fmt.Errorf("audio fallback device %q is %s", alternate.ID, unusableReason(alternate))
	}

	return Selection{
		Device:   alternate,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, alternate.ID),
		Fallback: primary.ID != alternate.ID,
	}, nil
}

// deviceMatches reports whether a lowercase term matches a device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

func deviceState(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable reports the active port availability of a source.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	for _, port := range source.Ports {
		if port.Name == source.ActivePortName {
			// PulseAudio values: unknown=0, no=1, yes=2.
			return port.Available != 1
		}
	}
	return true
}
