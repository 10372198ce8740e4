package handoff

import (
	"errors"
	"time"
)

// Status is the conversation's handoff lifecycle. OFF_HOURS_PENDING is
// not a status: it is a marker attachable while still BOT.
type Status string

const (
	StatusBot      Status = "BOT"
	StatusWaiting  Status = "WAITING"
	StatusAssigned Status = "ASSIGNED"
	StatusClosed   Status = "CLOSED"
)

var (
	ErrUnknownConversation = errors.New("handoff: unknown conversation")
	ErrInvalidTransition   = errors.New("handoff: invalid status transition")
)

// validTransitions encodes BOT → WAITING → ASSIGNED → CLOSED.
// ASSIGNED → ASSIGNED covers lateral transfer between agents.
var validTransitions = map[Status][]Status{
	StatusBot:      {StatusWaiting, StatusClosed},
	StatusWaiting:  {StatusAssigned, StatusClosed},
	StatusAssigned: {StatusAssigned, StatusClosed},
	StatusClosed:   {},
}

func canTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Priority bounds. VIP level maps onto this range; the queue orders by
// it descending.
const (
	PriorityNormal = 3
	PriorityHigh   = 4
	PriorityVIP    = 5
)

// priorityFor maps a customer's VIP level to queue priority.
func priorityFor(vipLevel int) int {
	switch {
	case vipLevel >= 4:
		return PriorityVIP
	case vipLevel >= 2:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// Conversation is the scheduler's operational record for one
// conversation. Dialogue state lives in the session store; this tracks
// only queueing and assignment.
type Conversation struct {
	ConversationID string    `json:"conversationId"`
	CustomerID     string    `json:"customerId"`
	RegionID       string    `json:"regionId"`
	Channel        string    `json:"channel"`
	Status         Status    `json:"status"`
	Priority       int       `json:"priority"`
	Reason         string    `json:"reason"`
	RequestedAt    time.Time `json:"requestedAt"`
	AssignedAgent  string    `json:"assignedAgent,omitempty"`

	OffHoursPending bool      `json:"offHoursPending"`
	MarkedAt        time.Time `json:"markedAt,omitempty"`
}

// QueueItem is one agent-facing queue row, with the computed 1-based
// position under the priority/FIFO ordering.
type QueueItem struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	CustomerID     string    `json:"customerId"`
	RegionID       string    `json:"regionId"`
	Channel        string    `json:"channel"`
	Priority       int       `json:"priority"`
	Reason         string    `json:"reason"`
	RequestedAt    time.Time `json:"requestedAt"`
	Position       int       `json:"position"`
}

// SweepReport is the outcome of one promotion sweep. Failures do not
// abort the sweep; they are counted and logged per item.
type SweepReport struct {
	Examined int `json:"examined"`
	Promoted int `json:"promoted"`
	Forced   int `json:"forced"`
	Failed   int `json:"failed"`
}
