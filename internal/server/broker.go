package server

import (
	"encoding/json"
	"sync"

	"github.com/RocketPartners/ping-pong-app-sub002/internal/bracket"
)

const (
	EventMatchReady          = "match_ready"
	EventMatchCompleted      = "match_completed"
	EventTournamentCompleted = "tournament_completed"
)

// Event is the payload published to tournament subscribers.
type Event struct {
	Type       string                `json:"type"`
	Tournament string                `json:"tournament"`
	Match      *bracket.Match        `json:"match,omitempty"`
	Champion   bracket.ParticipantID `json:"champion,omitempty"`
}

// Broker is an in-process pub/sub for SSE events, keyed by tournament ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the tournament.
func (b *Broker) Subscribe(tournamentID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[tournamentID] == nil {
		b.subs[tournamentID] = make(map[chan []byte]struct{})
	}
	b.subs[tournamentID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(tournamentID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[tournamentID], ch)
	if len(b.subs[tournamentID]) == 0 {
		delete(b.subs, tournamentID)
	}
	b.mu.Unlock()
}

// Subscribers reports how many streams follow the tournament.
func (b *Broker) Subscribers(tournamentID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[tournamentID])
}

// Publish sends an event to all subscribers of the tournament.
func (b *Broker) Publish(event Event) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[event.Tournament] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
