package indicator

import (
	"math"
	"time"

	"github.com/selineapp/seline/internal/audio"
)

type cueKind int

const (
	cueStart cueKind = iota + 1
	cueStop
	cueComplete
	cueCancel
)

func (k cueKind) String() string {
	switch k {
	case cueStart:
		return "start"
	case cueStop:
		return "stop"
	case cueComplete:
		return "complete"
	case cueCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

const cueSampleRate = audio.CaptureSampleRate

type tone struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var cues = map[cueKind][]int16{
	cueStart: synthesizeCue(
		tone{frequencyHz: 880, duration: 70 * time.Millisecond, volume: 0.18},
		tone{frequencyHz: 1175, duration: 70 * time.Millisecond, volume: 0.18},
	),
	cueStop: synthesizeCue(
		tone{frequencyHz: 620, duration: 120 * time.Millisecond, volume: 0.18},
	),
	cueComplete: synthesizeCue(
		tone{frequencyHz: 740, duration: 65 * time.Millisecond, volume: 0.18},
		tone{frequencyHz: 988, duration: 90 * time.Millisecond, volume: 0.18},
	),
	cueCancel: synthesizeCue(
		tone{frequencyHz: 480, duration: 75 * time.Millisecond, volume: 0.18},
		tone{frequencyHz: 360, duration: 90 * time.Millisecond, volume: 0.18},
	),
}

func cuePCM(kind cueKind) (audio.PCM, bool) {
	samples, ok := cues[kind]
	if !ok || len(samples) == 0 {
		return audio.PCM{}, false
	}
	return audio.PCMFromSamples(cueSampleRate, samples), true
}

// synthesizeCue joins tones with a short silent gap.
func synthesizeCue(parts ...tone) []int16 {
	gap := samplesFor(22 * time.Millisecond)

	var pcm []int16
	for i, part := range parts {
		if i > 0 {
			pcm = append(pcm, make([]int16, gap)...)
		}
		pcm = append(pcm, synthesizeTone(part)...)
	}
	return pcm
}

// synthesizeTone renders a sine with a short linear attack and release.
func synthesizeTone(t tone) []int16 {
	n := samplesFor(t.duration)
	if n <= 0 || t.frequencyHz <= 0 || t.volume <= 0 {
		return nil
	}

	ramp := min(max(n/10, 1), cueSampleRate/200)

	pcm := make([]int16, n)
	for i := range n {
		envelope := 1.0
		if i < ramp {
			envelope = float64(i) / float64(ramp)
		}
		if tail := n - i - 1; tail < ramp {
			envelope = math.Min(envelope, float64(tail)/float64(ramp))
		}
		phase := 2 * math.Pi * t.frequencyHz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * t.volume * envelope * math.MaxInt16))
	}
	return pcm
}

func samplesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}
