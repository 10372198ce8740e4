package channels

import (
	"context"
	"fmt"
	"strings"

	"github.com/voyagenthq/voyagent/pkg/bus"
)

// Channel is one customer-facing transport. Inbound messages flow to
// the bus; the manager's outbound dispatcher calls Send for replies.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
	IsAllowed(senderID string) bool
}

type BaseChannel struct {
	bus       *bus.MessageBus
	running   bool
	name      string
	regionID  string
	allowList []string
}

func NewBaseChannel(name, regionID string, bus *bus.MessageBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		bus:       bus,
		name:      name,
		regionID:  regionID,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running
}

func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	// Tolerate compound sender ids like "123456|username".
	idPart := senderID
	userPart := ""
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
		userPart = senderID[idx+1:]
	}

	for _, allowed := range c.allowList {
		candidate := strings.TrimSpace(strings.TrimPrefix(allowed, "@"))
		if candidate == "" {
			continue
		}
		if candidate == senderID || candidate == idPart || (userPart != "" && candidate == userPart) {
			return true
		}
	}

	return false
}

// HandleMessage publishes one customer utterance to the bus. The
// conversation id is channel-scoped so the same external chat id on
// two transports never shares dialogue state.
func (c *BaseChannel) HandleMessage(senderID, chatID, content string, metadata map[string]string) {
	if !c.IsAllowed(senderID) {
		return
	}

	c.bus.PublishInbound(bus.InboundMessage{
		Channel:        c.name,
		ConversationID: fmt.Sprintf("%s:%s", c.name, chatID),
		CustomerID:     senderID,
		RegionID:       c.regionID,
		Content:        content,
		Metadata:       metadata,
	})
}

func (c *BaseChannel) setRunning(running bool) {
	c.running = running
}
