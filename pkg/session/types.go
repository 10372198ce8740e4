package session

import (
	"time"

	"github.com/voyagenthq/voyagent/pkg/entity"
)

// Turn is one entry of the rolling conversation history.
type Turn struct {
	Role      string    `json:"role"` // user or assistant
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// DialogueState is present exactly while a slot-filling flow is open:
// the previous turn ended with the handler still awaiting information.
type DialogueState struct {
	CurrentIntent string                 `json:"currentIntent"`
	AwaitingSlots []entity.Slot          `json:"awaitingSlots"`
	CollectedInfo map[entity.Slot]string `json:"collectedInfo"`
	LastQuestion  string                 `json:"lastQuestion"`
	LastAskedAt   time.Time              `json:"lastAskedAt"`
}

// Awaiting reports whether slot is in the awaiting set.
func (d *DialogueState) Awaiting(slot entity.Slot) bool {
	if d == nil {
		return false
	}
	for _, s := range d.AwaitingSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// ConversationState is everything the engine keeps per conversation.
type ConversationState struct {
	SessionID  string                 `json:"sessionId"`
	Channel    string                 `json:"channel"`
	CustomerID string                 `json:"customerId"`
	RegionID   string                 `json:"regionId"`
	History    []Turn                 `json:"history"`
	Entities   map[entity.Slot]string `json:"entities"`
	Dialogue   *DialogueState         `json:"dialogue,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// NewConversationState initializes state for a conversation's first
// message.
func NewConversationState(sessionID string) *ConversationState {
	now := time.Now()
	return &ConversationState{
		SessionID: sessionID,
		Entities:  make(map[entity.Slot]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendTurn adds a history entry and trims to the most recent limit.
func (s *ConversationState) AppendTurn(role, text string, limit int) {
	s.History = append(s.History, Turn{Role: role, Text: text, Timestamp: time.Now()})
	if limit > 0 && len(s.History) > limit {
		s.History = s.History[len(s.History)-limit:]
	}
}
