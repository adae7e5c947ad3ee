// Package store provides a generic event-sourced state container.
//
// A Store owns a current state value and an append-only log of the events that
// produced it. State only changes through Dispatch, which applies a pure reducer,
// records the event and then notifies subscribers. Because the reducer is pure,
// the same log replayed from the same initial state always yields the same state
// (see Replay).
package store

import "sync"

// Reducer computes the next state from the current state and an event.
// It must not mutate its inputs.
type Reducer[S, E any] func(state S, event E) S

// Listener is notified after every dispatch with the new state and the event that produced it.
type Listener[S, E any] func(state S, event E)

type subscription[S, E any] struct {
	id int
	fn Listener[S, E]
}

// Store is an event-sourced state container.
// It is safe for concurrent readers; dispatches are serialized.
type Store[S, E any] struct {
	mu      sync.RWMutex
	reducer Reducer[S, E]
	state   S
	events  []E

	subs   []subscription[S, E]
	nextID int
}

// New creates a store holding initial and an empty log.
func New[S, E any](reducer Reducer[S, E], initial S) *Store[S, E] {
	return &Store[S, E]{
		reducer: reducer,
		state:   initial,
	}
}

// Dispatch applies event to the current state, appends it to the log and
// notifies the subscribers registered at the time of the call.
// Listeners run after the store lock is released, so they may read the store
// or unsubscribe themselves.
func (s *Store[S, E]) Dispatch(event E) S {
	s.mu.Lock()
	s.state = s.reducer(s.state, event)
	s.events = append(s.events, event)
	state := s.state
	subs := make([]subscription[S, E], len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(state, event)
	}
	return state
}

// State returns the current state.
func (s *Store[S, E]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Events returns a copy of the log in dispatch order.
func (s *Store[S, E]) Events() []E {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]E, len(s.events))
	copy(out, s.events)
	return out
}

// Len returns the number of events dispatched so far.
func (s *Store[S, E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Subscribe registers fn for future dispatches and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (s *Store[S, E]) Subscribe(fn Listener[S, E]) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription[S, E]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					// Rebuild instead of shifting in place: a dispatch may hold the old slice.
					next := make([]subscription[S, E], 0, len(s.subs)-1)
					next = append(next, s.subs[:i]...)
					s.subs = append(next, s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Replay folds events over initial with reducer.
func Replay[S, E any](reducer Reducer[S, E], initial S, events []E) S {
	state := initial
	for _, e := range events {
		state = reducer(state, e)
	}
	return state
}
