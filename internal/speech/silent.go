package speech

import "context"

// Silent is used when speech output is disabled. Its utterances complete immediately.
type Silent struct{}

// Speak returns an already finished utterance.
func (Silent) Speak(_ context.Context, text string) *Utterance {
	u := newUtterance(text, nil)
	u.complete(nil)
	return u
}

func (Silent) Stop() {}

func (Silent) Speaking() bool { return false }

func (Silent) Wait(context.Context) error { return nil }
