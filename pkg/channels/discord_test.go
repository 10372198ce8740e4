package channels

import (
	"strings"
	"testing"
)

func TestSplitMessageShort(t *testing.T) {
	got := splitMessage("hello", 1500)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("short message must not split: %v", got)
	}
}

func TestSplitMessagePrefersNewline(t *testing.T) {
	content := strings.Repeat("a", 90) + "\n" + strings.Repeat("b", 90)
	got := splitMessage(content, 100)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if !strings.HasPrefix(got[1], "b") {
		t.Fatalf("split should land on the newline, got %q", got[1])
	}
}

func TestSplitMessageHardCut(t *testing.T) {
	content := strings.Repeat("x", 250) // no boundaries at all
	got := splitMessage(content, 100)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	for _, chunk := range got {
		if len(chunk) > 100 {
			t.Fatalf("chunk exceeds limit: %d", len(chunk))
		}
	}
}

func TestDiscordChatID(t *testing.T) {
	if got := discordChatID("discord:12345"); got != "12345" {
		t.Fatalf("got %q", got)
	}
	if got := discordChatID("12345"); got != "12345" {
		t.Fatalf("unprefixed id passes through, got %q", got)
	}
}
