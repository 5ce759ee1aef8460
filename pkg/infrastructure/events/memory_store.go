package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// InMemoryEventStore keeps one global log and per-stream positions into it.
// Handlers run on their own goroutines; Wait blocks until they finish.
type InMemoryEventStore struct {
	mu          sync.RWMutex
	log         []BaseEvent
	streams     map[string][]int
	subscribers map[string][]EventHandler

	logger   zerolog.Logger
	inFlight sync.WaitGroup
}

func NewInMemoryEventStore(logger zerolog.Logger) *InMemoryEventStore {
	return &InMemoryEventStore{
		streams:     make(map[string][]int),
		subscribers: make(map[string][]EventHandler),
		logger:      logger.With().Str("component", "events").Logger(),
	}
}

func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mu.Lock()
	recorded := BaseEvent{
		EventType:    event.Type(),
		Stream:       streamID,
		EventData:    event.Data(),
		EventTime:    event.Timestamp(),
		EventVersion: len(s.streams[streamID]) + 1,
	}
	s.streams[streamID] = append(s.streams[streamID], len(s.log))
	s.log = append(s.log, recorded)

	var targets []EventHandler
	for _, h := range s.subscribers[recorded.EventType] {
		if h.CanHandle(recorded.EventType) {
			targets = append(targets, h)
		}
	}
	s.inFlight.Add(len(targets))
	s.mu.Unlock()

	s.logger.Debug().
		Str("type", recorded.EventType).
		Str("stream", streamID).
		Int("version", recorded.EventVersion).
		Msg("event appended")

	for _, h := range targets {
		go s.dispatch(h, recorded)
	}
	return nil
}

// ReadEvents returns the stream from version fromVersion on; versions start at 1
func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := s.streams[streamID]
	start := max(fromVersion, 1) - 1
	out := []Event{}
	for _, pos := range positions[min(start, len(positions)):] {
		out = append(out, s.log[pos])
	}
	return out, nil
}

// ReadAllEvents returns the global log from a zero-based position on
func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := min(max(fromPosition, 0), len(s.log))
	out := make([]Event, 0, len(s.log)-start)
	for _, e := range s.log[start:] {
		out = append(out, e)
	}
	return out, nil
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range eventTypes {
		s.subscribers[t] = append(s.subscribers[t], handler)
	}
	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for t, handlers := range s.subscribers {
		kept := handlers[:0:0]
		for _, h := range handlers {
			if h != handler {
				kept = append(kept, h)
			}
		}
		s.subscribers[t] = kept
	}
	return nil
}

// Wait blocks until every dispatched handler has returned
func (s *InMemoryEventStore) Wait() {
	s.inFlight.Wait()
}

func (s *InMemoryEventStore) dispatch(h EventHandler, e Event) {
	defer s.inFlight.Done()
	if err := h.Handle(e); err != nil {
		s.logger.Error().Err(err).Str("type", e.Type()).Str("stream", e.StreamID()).Msg("event handler failed")
	}
}
