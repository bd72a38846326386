package app

import (
	"context"
	"fmt"

	"github.com/selineapp/seline/internal/audio"
)

func (r Runner) commandDevices(ctx context.Context) int {
	inputs, err := audio.ListDevices(ctx)
	if err != nil {
		return r.fail(err)
	}
	sinks, err := audio.ListSinks(ctx)
	if err != nil {
		return r.fail(err)
	}
	if len(inputs) == 0 && len(sinks) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	fmt.Fprintln(r.Stdout, "inputs:")
	r.printDevices(inputs)
	fmt.Fprintln(r.Stdout, "outputs:")
	r.printDevices(sinks)
	return 0
}

func (r Runner) printDevices(devices []audio.Device) {
	for _, device := range devices {
		mark := " "
		if device.Default {
			mark = "*"
		}
		fmt.Fprintf(r.Stdout, "%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			mark, device.ID, device.Description, device.State, yesNo(device.Available), yesNo(device.Muted))
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
