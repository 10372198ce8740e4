package dialogue

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/voyagenthq/voyagent/pkg/entity"
	"github.com/voyagenthq/voyagent/pkg/session"
)

// messageHints is what the continuation detectors saw in a raw
// message: the slot types it looks like it is supplying, whether it
// reads as an affirmative confirmation, and whether it is short enough
// to plausibly be a bare answer to the last question.
type messageHints struct {
	slots        []entity.Slot
	confirmation bool
	short        bool
}

const confirmationPrefix = "確認"

var questionMarkers = []string{"?", "？", "嗎", "呢", "如何", "怎麼", "什麼"}

// detectHints runs the independent pattern detectors over the raw
// message. Detection is deliberately over-eager; eligibility gating
// happens separately against the open dialogue state. ruleSlots is the
// turn's rule extraction, computed once by the caller.
func (e *Engine) detectHints(text string, ruleSlots map[entity.Slot]string) messageHints {
	var h messageHints

	for slot := range ruleSlots {
		h.slots = append(h.slots, slot)
	}

	h.confirmation = e.isConfirmation(text)
	h.short = isShortAnswer(text, e.cfg.Dialogue.ShortMessageRunes)
	return h
}

// isConfirmation recognizes the affirmative allow-list plus a
// starts-with-確認 prefix rule ("確認訂購" still counts). Substring
// matching is deliberately avoided: "不確定" must not confirm.
func (e *Engine) isConfirmation(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, token := range e.cfg.Dialogue.ConfirmationTokens {
		if trimmed == token {
			return true
		}
	}
	return strings.HasPrefix(trimmed, confirmationPrefix)
}

// isShortAnswer reports whether the message is short and does not read
// as a question. A short question ("為什麼呢?") is the user asking for
// help, not supplying a slot value.
func isShortAnswer(text string, maxRunes int) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > maxRunes {
		return false
	}
	for _, marker := range questionMarkers {
		if strings.Contains(trimmed, marker) {
			return false
		}
	}
	return true
}

// continuationEligible decides whether this turn reuses the open
// intent instead of re-classifying. All of: an open dialogue state,
// a fresh lastAskedAt, a non-empty awaiting set; plus either a slot
// hint intersecting the awaited slots or a short bare answer.
func (e *Engine) continuationEligible(state *session.ConversationState, hints messageHints, now time.Time) bool {
	d := state.Dialogue
	if d == nil || len(d.AwaitingSlots) == 0 {
		return false
	}
	window := time.Duration(e.cfg.Dialogue.ContinuationWindowSeconds) * time.Second
	if now.Sub(d.LastAskedAt) > window {
		return false
	}
	for _, slot := range hints.slots {
		if d.Awaiting(slot) {
			return true
		}
	}
	if hints.confirmation && d.Awaiting(entity.SlotConfirmation) {
		return true
	}
	return hints.short
}
