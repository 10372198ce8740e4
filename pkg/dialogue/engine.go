package dialogue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/voyagenthq/voyagent/pkg/bus"
	"github.com/voyagenthq/voyagent/pkg/classifier"
	"github.com/voyagenthq/voyagent/pkg/config"
	"github.com/voyagenthq/voyagent/pkg/entity"
	"github.com/voyagenthq/voyagent/pkg/faq"
	"github.com/voyagenthq/voyagent/pkg/logger"
	"github.com/voyagenthq/voyagent/pkg/session"
)

// Escalator receives the engine's requires-human verdicts. The handoff
// scheduler implements it; tests inject a recorder.
type Escalator interface {
	RequestHandoff(ctx context.Context, req EscalationRequest) error
}

// EscalationRequest carries what the scheduler needs to queue (or
// defer) a human takeover.
type EscalationRequest struct {
	ConversationID string
	CustomerID     string
	RegionID       string
	Channel        string
	Reason         string
}

// Reply is the engine's answer for one inbound message: the reply text
// plus the structured fields transports and agent consoles render.
type Reply struct {
	Text             string
	Intent           Intent
	Confidence       float64
	Entities         map[entity.Slot]string
	RequiresHuman    bool
	SuggestedActions []string
	AwaitingInfo     []entity.Slot
	IsContinuation   bool
}

const safeFallbackReply = "系統發生問題，已為您通知客服人員，請稍候。"

// Engine is the dialogue state machine: it decides whether a message
// continues an open slot-filling flow or starts a new intent, merges
// entities, dispatches to the intent handler, and persists the updated
// conversation state.
type Engine struct {
	cfg       *config.Config
	store     session.Store
	registry  *entity.Registry
	oracle    classifier.Classifier
	ranker    *faq.Ranker
	escalator Escalator
	msgBus    *bus.MessageBus
	locks     *keyedMutex
	running   atomic.Bool
	now       func() time.Time
}

// Options wires the engine's collaborators. Store, Classifier and
// Ranker are required; Escalator and Bus are optional (the chat REPL
// runs without either).
type Options struct {
	Config     *config.Config
	Store      session.Store
	Classifier classifier.Classifier
	Ranker     *faq.Ranker
	Escalator  Escalator
	Bus        *bus.MessageBus
}

func NewEngine(opts Options) *Engine {
	return &Engine{
		cfg:       opts.Config,
		store:     opts.Store,
		registry:  entity.NewRegistry(),
		oracle:    opts.Classifier,
		ranker:    opts.Ranker,
		escalator: opts.Escalator,
		msgBus:    opts.Bus,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// Run consumes inbound messages from the bus until the context is
// canceled. Each message is processed end to end; conversations are
// serialized by HandleMessage's per-conversation lock, so concurrent
// messages for different conversations could be fanned out, but one
// consumer matches the transports' own delivery order.
func (e *Engine) Run(ctx context.Context) error {
	e.running.Store(true)

	for e.running.Load() {
		select {
		case <-ctx.Done():
			return nil
		default:
			msg, ok := e.msgBus.ConsumeInbound(ctx)
			if !ok {
				// Either the context was canceled or the bus was
				// closed; both mean no more inbound messages.
				return nil
			}

			reply := e.HandleMessage(ctx, msg)
			out := bus.OutboundMessage{
				Channel:          msg.Channel,
				ConversationID:   msg.ConversationID,
				Content:          reply.Text,
				Intent:           reply.Intent.String(),
				RequiresHuman:    reply.RequiresHuman,
				SuggestedActions: reply.SuggestedActions,
			}
			if handler, ok := e.msgBus.GetReplier(msg.Channel); ok {
				handler(out)
			} else {
				e.msgBus.PublishOutbound(out)
			}
		}
	}

	return nil
}

func (e *Engine) Stop() {
	e.running.Store(false)
}

// HandleMessage processes one inbound message and returns the reply.
// It never returns an error or panics outward: any failure inside the
// turn degrades to a safe human-escalating reply. This is the single
// entry point every transport adapter calls.
func (e *Engine) HandleMessage(ctx context.Context, msg bus.InboundMessage) (reply *Reply) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("dialogue", "Recovered from panic in turn processing",
				map[string]any{"conversation_id": msg.ConversationID, "panic": r})
			reply = &Reply{
				Text:          safeFallbackReply,
				Intent:        IntentUnknown,
				RequiresHuman: true,
			}
			e.escalate(ctx, msg, "internal error")
		}
	}()

	unlock := e.locks.Lock(msg.ConversationID)
	defer unlock()

	now := e.now()
	state := e.loadState(ctx, msg)
	ruleSlots := entity.Flatten(e.registry.ExtractAll(msg.Content))
	hints := e.detectHints(msg.Content, ruleSlots)

	isContinuation := e.continuationEligible(state, hints, now)

	var (
		intent      Intent
		confidence  float64
		oracleSlots map[string]string
		oracleHuman bool
	)
	if isContinuation {
		// Reuse the open intent and skip the classifier round trip:
		// classification is the most expensive step of the turn.
		intent = ParseIntent(state.Dialogue.CurrentIntent)
		confidence = 1
	} else {
		res, err := e.oracle.Classify(ctx, msg.Content, state.History)
		if err != nil {
			logger.WarnCF("dialogue", "Classifier failed, falling back to UNKNOWN",
				map[string]any{"conversation_id": msg.ConversationID, "error": err.Error()})
		} else {
			intent = ParseIntent(res.Intent)
			confidence = res.Confidence
			oracleSlots = res.Entities
			oracleHuman = res.RequiresHuman
		}
	}

	merged := mergeSlots(state, ruleSlots, oracleSlots)
	if hints.confirmation {
		merged[entity.SlotConfirmation] = "yes"
	}

	result := e.dispatch(intent, handlerInput{
		Message:        msg.Content,
		Merged:         merged,
		State:          state,
		IsContinuation: isContinuation,
	})
	if oracleHuman {
		result.RequiresHuman = true
	}

	e.applyResult(state, intent, result, merged, now)
	state.AppendTurn("user", msg.Content, e.cfg.Dialogue.HistoryLimit)
	state.AppendTurn("assistant", result.Reply, e.cfg.Dialogue.HistoryLimit)
	state.UpdatedAt = now

	if err := e.store.Put(ctx, state); err != nil {
		logger.ErrorCF("dialogue", "Failed to persist conversation state",
			map[string]any{"conversation_id": msg.ConversationID, "error": err.Error()})
	}

	if result.RequiresHuman {
		e.escalate(ctx, msg, intent.String())
	}

	logger.InfoCF("dialogue", "Turn processed", map[string]any{
		"conversation_id": msg.ConversationID,
		"intent":          intent.String(),
		"continuation":    isContinuation,
		"requires_human":  result.RequiresHuman,
		"awaiting":        len(result.AwaitingInfo),
	})

	return &Reply{
		Text:             result.Reply,
		Intent:           intent,
		Confidence:       confidence,
		Entities:         merged,
		RequiresHuman:    result.RequiresHuman,
		SuggestedActions: result.SuggestedActions,
		AwaitingInfo:     result.AwaitingInfo,
		IsContinuation:   isContinuation,
	}
}

func (e *Engine) loadState(ctx context.Context, msg bus.InboundMessage) *session.ConversationState {
	state, err := e.store.Get(ctx, msg.ConversationID)
	if err != nil {
		logger.WarnCF("dialogue", "Failed to load conversation state, starting fresh",
			map[string]any{"conversation_id": msg.ConversationID, "error": err.Error()})
	}
	if state == nil {
		state = session.NewConversationState(msg.ConversationID)
	}
	state.Channel = msg.Channel
	if msg.CustomerID != "" {
		state.CustomerID = msg.CustomerID
	}
	if msg.RegionID != "" {
		state.RegionID = msg.RegionID
	}
	if state.Entities == nil {
		state.Entities = make(map[entity.Slot]string)
	}
	return state
}

// mergeSlots builds the turn's slot record. Precedence low to high:
// collected info from the open flow, session-level entities, this
// turn's rule extraction, this turn's classifier entities. The
// freshest source wins every key collision, so stale session memory
// never overrides what the customer just said.
func mergeSlots(state *session.ConversationState, ruleSlots map[entity.Slot]string, oracleSlots map[string]string) map[entity.Slot]string {
	merged := make(map[entity.Slot]string)
	if state.Dialogue != nil {
		for k, v := range state.Dialogue.CollectedInfo {
			merged[k] = v
		}
	}
	for k, v := range state.Entities {
		merged[k] = v
	}
	for k, v := range ruleSlots {
		merged[k] = v
	}
	for k, v := range oracleSlots {
		if v != "" {
			merged[entity.Slot(k)] = v
		}
	}
	return merged
}

// applyResult performs the turn's state transition: a non-empty
// awaiting set opens or refreshes the flow, completion closes it, and
// an in-place resolution leaves dialogue state untouched. Merged slot
// values (minus the confirmation marker) accumulate on the session.
func (e *Engine) applyResult(state *session.ConversationState, intent Intent, result handlerResult, merged map[entity.Slot]string, now time.Time) {
	collected := make(map[entity.Slot]string, len(merged))
	for k, v := range merged {
		if k == entity.SlotConfirmation {
			continue
		}
		collected[k] = v
		state.Entities[k] = v
	}

	switch {
	case len(result.AwaitingInfo) > 0:
		state.Dialogue = &session.DialogueState{
			CurrentIntent: intent.String(),
			AwaitingSlots: result.AwaitingInfo,
			CollectedInfo: collected,
			LastQuestion:  result.Reply,
			LastAskedAt:   now,
		}
	case result.Complete:
		state.Dialogue = nil
	}
}

func (e *Engine) escalate(ctx context.Context, msg bus.InboundMessage, reason string) {
	if e.escalator == nil {
		return
	}
	err := e.escalator.RequestHandoff(ctx, EscalationRequest{
		ConversationID: msg.ConversationID,
		CustomerID:     msg.CustomerID,
		RegionID:       msg.RegionID,
		Channel:        msg.Channel,
		Reason:         reason,
	})
	if err != nil {
		logger.ErrorCF("dialogue", "Handoff request failed",
			map[string]any{"conversation_id": msg.ConversationID, "error": err.Error()})
	}
}
