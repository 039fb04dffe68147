package service

import (
	"EnclosureAPI/internal/websocket"
	"fmt"
	"sync"
)

type SendState string

const (
	StateIdle       SendState = "idle"
	StatePreviewing SendState = "previewing"
	StateSending    SendState = "sending"
	StateDone       SendState = "done"
	StateFailed     SendState = "failed"
)

var sendTransitions = map[SendState][]SendState{
	StateIdle:       {StatePreviewing},
	StatePreviewing: {StateSending, StateIdle},
	StateSending:    {StateDone, StateFailed},
}

// SendSession tracks one batch from selection to handoff. Every transition
// is pushed to the sender as a batch.state event.
type SendSession struct {
	mu        sync.Mutex
	batchID   string
	ownerUID  string
	state     SendState
	selection []Asset
	notifier  Notifier
}

func NewSendSession(batchID, ownerUID string, notifier Notifier) *SendSession {
	return &SendSession{
		batchID:  batchID,
		ownerUID: ownerUID,
		state:    StateIdle,
		notifier: notifier,
	}
}

func (s *SendSession) BatchID() string {
	return s.batchID
}

func (s *SendSession) State() SendState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SendSession) Selection() []Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Asset, len(s.selection))
	copy(out, s.selection)
	return out
}

func (s *SendSession) Preview(assets []Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(StatePreviewing); err != nil {
		return err
	}
	s.selection = assets
	return nil
}

// Cancel drops the selection and goes back to idle.
func (s *SendSession) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(StateIdle); err != nil {
		return err
	}
	s.selection = nil
	return nil
}

func (s *SendSession) Begin() error {
	return s.transition(StateSending)
}

func (s *SendSession) Complete() error {
	return s.transition(StateDone)
}

func (s *SendSession) Fail() error {
	return s.transition(StateFailed)
}

// Dismiss clears the selection and tells the sender the preview is gone.
func (s *SendSession) Dismiss() {
	s.mu.Lock()
	s.selection = nil
	s.mu.Unlock()

	s.notify(websocket.NewEvent(websocket.EventBatchDismissed, websocket.BatchStatePayload{
		BatchID: s.batchID,
		State:   string(s.State()),
	}, s.batchID, s.ownerUID))
}

func (s *SendSession) transition(to SendState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to)
}

func (s *SendSession) transitionLocked(to SendState) error {
	allowed := false
	for _, next := range sendTransitions[s.state] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
	}

	s.state = to
	s.notify(websocket.NewEvent(websocket.EventBatchState, websocket.BatchStatePayload{
		BatchID: s.batchID,
		State:   string(to),
	}, s.batchID, s.ownerUID))
	return nil
}

func (s *SendSession) notify(event websocket.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.BroadcastToUser(s.ownerUID, event)
}
