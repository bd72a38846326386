package voice

import (
	"context"
	"sync"

	"github.com/selineapp/seline/internal/capture"
	"github.com/selineapp/seline/internal/chat"
	"github.com/selineapp/seline/internal/speech"
)

// scriptedBackend streams fixed deltas, optionally blocking before finishing.
type scriptedBackend struct {
	deltas []string
	err    error
	// hold, when set, blocks after the deltas until closed or cancelled.
	hold    chan struct{}
	entered chan struct{}
	before  func()

	mu       sync.Mutex
	requests []chat.Request
}

func (b *scriptedBackend) StreamChat(ctx context.Context, req chat.Request, onDelta func(string)) error {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.before != nil {
		b.before()
	}
	for _, delta := range b.deltas {
		onDelta(delta)
	}
	if b.entered != nil {
		b.entered <- struct{}{}
	}
	if b.hold != nil {
		select {
		case <-b.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return b.err
}

func (b *scriptedBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

// recordingSpeaker logs spoken text and finishes utterances immediately.
type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
	stops  int
	log    *eventLog
}

func (s *recordingSpeaker) Speak(ctx context.Context, text string) *speech.Utterance {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	return speech.Silent{}.Speak(ctx, text)
}

func (s *recordingSpeaker) Stop() {
	s.mu.Lock()
	s.stops++
	s.mu.Unlock()
	s.log.add("speech.stop")
}

func (s *recordingSpeaker) Speaking() bool             { return false }
func (s *recordingSpeaker) Wait(context.Context) error { return nil }

func (s *recordingSpeaker) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

type fakeRecorder struct {
	mu         sync.Mutex
	transcript string
	startErr   error
	stopErr    error
	text       string
	started    int
	cancelled  int
	stops      []bool
	log        *eventLog
	// stopEntered and stopHold, when set, block Stop until stopHold closes.
	stopEntered chan struct{}
	stopHold    chan struct{}
}

func (r *fakeRecorder) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.add("recorder.start")
	if r.startErr != nil {
		return r.startErr
	}
	r.started++
	return nil
}

func (r *fakeRecorder) Stop(_ context.Context, userInitiated bool) (capture.StopResult, error) {
	if r.stopEntered != nil {
		r.stopEntered <- struct{}{}
	}
	if r.stopHold != nil {
		<-r.stopHold
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops = append(r.stops, userInitiated)
	if r.stopErr != nil {
		return capture.StopResult{}, r.stopErr
	}
	return capture.StopResult{Transcript: r.transcript, UserInitiated: userInitiated}, nil
}

func (r *fakeRecorder) Cancel(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled++
	return nil
}

func (r *fakeRecorder) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

func (r *fakeRecorder) stopCalls() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.stops...)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// snapshots collects observer notifications.
type snapshots struct {
	mu   sync.Mutex
	list []Snapshot
}

func (s *snapshots) observe(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, snap)
}

func (s *snapshots) all() []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Snapshot(nil), s.list...)
}

type captureSink struct {
	mu      sync.Mutex
	answers []string
}

func (c *captureSink) Deliver(_ context.Context, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers = append(c.answers, answer)
	return nil
}
