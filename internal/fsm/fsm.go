// Package fsm defines the voice session lifecycle state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateAnswering State = "answering"
	StateError     State = "error"
)

const (
	EventStart     Event = "start"
	EventStop      Event = "stop"
	EventCancel    Event = "cancel"
	EventSubmit    Event = "submit"
	EventAnswered  Event = "answered"
	EventInterrupt Event = "interrupt"
	EventFail      Event = "fail"
	EventReset     Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		case EventSubmit:
			return StateAnswering, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop, EventCancel:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateAnswering:
		switch event {
		case EventAnswered, EventInterrupt:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Busy reports whether a query is in flight in state s.
func Busy(s State) bool {
	return s == StateAnswering
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
