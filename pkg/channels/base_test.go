package channels

import (
	"context"
	"testing"

	"github.com/voyagenthq/voyagent/pkg/bus"
)

func TestIsAllowed(t *testing.T) {
	b := NewBaseChannel("test", "taipei", bus.NewMessageBus(), []string{"123", "@alice"})

	cases := []struct {
		sender string
		want   bool
	}{
		{"123", true},
		{"123|alice", true},
		{"456|alice", true}, // username part matches
		{"456", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := b.IsAllowed(tc.sender); got != tc.want {
			t.Errorf("IsAllowed(%q) = %v, want %v", tc.sender, got, tc.want)
		}
	}

	open := NewBaseChannel("test", "taipei", bus.NewMessageBus(), nil)
	if !open.IsAllowed("anyone") {
		t.Fatalf("empty allowlist admits everyone")
	}
}

func TestHandleMessagePublishesScopedConversation(t *testing.T) {
	mb := bus.NewMessageBus()
	b := NewBaseChannel("discord", "taipei", mb, nil)

	b.HandleMessage("user-9", "chat-7", "你好", map[string]string{"k": "v"})

	msg, ok := mb.ConsumeInbound(context.Background())
	if !ok {
		t.Fatalf("expected a published message")
	}
	if msg.ConversationID != "discord:chat-7" {
		t.Fatalf("conversation id = %q", msg.ConversationID)
	}
	if msg.CustomerID != "user-9" || msg.RegionID != "taipei" || msg.Content != "你好" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestHandleMessageRespectsAllowlist(t *testing.T) {
	mb := bus.NewMessageBus()
	b := NewBaseChannel("discord", "", mb, []string{"vip-only"})

	b.HandleMessage("stranger", "chat-1", "嗨", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := mb.ConsumeInbound(ctx); ok {
		t.Fatalf("blocked sender must not publish")
	}
}
