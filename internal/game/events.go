package game

import (
	"encoding/json"
	"sync"
)

const (
	EventSessionStarted   = "session_started"
	EventRoundStarted     = "round_started"
	EventGuessResult      = "guess_result"
	EventSessionCompleted = "session_completed"
)

// Publisher receives engine events for a user. Publishing never blocks.
type Publisher interface {
	Publish(userID string, eventType string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, any) {}

type Subscription struct {
	userID string
	send   chan []byte

	closeOnce sync.Once
}

// C yields encoded Envelope frames.
func (s *Subscription) C() <-chan []byte { return s.send }

// Hub fans engine events out to every subscription of the same user.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(userID string, buf int) *Subscription {
	s := &Subscription{userID: userID, send: make(chan []byte, buf)}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[userID] = set
	}
	set[s] = struct{}{}
	return s
}

func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[s.userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.userID)
		}
	}
	s.closeOnce.Do(func() { close(s.send) })
}

func (h *Hub) Publish(userID string, eventType string, payload any) {
	if userID == "" {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	b, err := json.Marshal(Envelope{Type: eventType, Payload: raw})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[userID] {
		select {
		case s.send <- b:
		default:
			// slow reader: drop
		}
	}
}

type SessionEvent struct {
	SessionID int64   `json:"sessionId"`
	Status    Status  `json:"status"`
	Outcome   Outcome `json:"outcome,omitempty"`
}

type RoundStartedEvent struct {
	SessionID  int64  `json:"sessionId"`
	CardID     int64  `json:"cardId"`
	Name       string `json:"name"`
	ImageRef   string `json:"imageRef"`
	DeadlineMs int64  `json:"deadlineMs"`
}

type GuessResultEvent struct {
	SessionID   int64   `json:"sessionId"`
	RoundNumber int     `json:"roundNumber"`
	IsCorrect   bool    `json:"isCorrect"`
	TimedOut    bool    `json:"timedOut"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Status      Status  `json:"status"`
	Outcome     Outcome `json:"outcome,omitempty"`
}
