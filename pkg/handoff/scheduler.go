package handoff

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/google/uuid"

	"github.com/voyagenthq/voyagent/pkg/bus"
	"github.com/voyagenthq/voyagent/pkg/config"
	"github.com/voyagenthq/voyagent/pkg/dialogue"
	"github.com/voyagenthq/voyagent/pkg/logger"
	"github.com/voyagenthq/voyagent/pkg/session"
)

const (
	offHoursNotice  = "目前為非營業時間，您的需求已記錄，客服人員上班後將優先與您聯繫。"
	queuedNotice    = "已為您排入真人客服等候佇列，請稍候。"
	promotedNotice  = "客服人員已上線，您的需求已進入等候佇列。"
	systemTurnLimit = 20
)

// VIPResolver maps a customer to a VIP level. The default resolver
// reads the configured level table; deployments backed by a CRM can
// inject their own.
type VIPResolver func(customerID string) int

// Scheduler owns conversation handoff lifecycle: the working-hours
// gate, the priority queue, and the periodic off-hours promotion
// sweep. It implements dialogue.Escalator.
type Scheduler struct {
	cfg     *config.Config
	hours   *HoursResolver
	vip     VIPResolver
	msgBus *bus.MessageBus
	store  session.Store
	now    func() time.Time

	mu            sync.RWMutex
	conversations map[string]*Conversation
	ids           map[string]string // conversation id -> queue entry id
}

// SchedulerOptions wires the scheduler. Bus and Store are optional:
// without a bus no notices are delivered, without a store no synthetic
// history turns are recorded.
type SchedulerOptions struct {
	Config *config.Config
	Bus    *bus.MessageBus
	Store  session.Store
	VIP    VIPResolver
}

func NewScheduler(opts SchedulerOptions) *Scheduler {
	vip := opts.VIP
	if vip == nil {
		levels := opts.Config.Handoff.VIPLevels
		vip = func(customerID string) int { return levels[customerID] }
	}
	return &Scheduler{
		cfg:           opts.Config,
		hours:         NewHoursResolver(opts.Config),
		vip:           vip,
		msgBus:        opts.Bus,
		store:         opts.Store,
		now:           time.Now,
		conversations: make(map[string]*Conversation),
		ids:           make(map[string]string),
	}
}

// RequestHandoff is the dialogue engine's requires-human hook. Within
// working hours the conversation is queued immediately; outside them
// it is only marked OFF_HOURS_PENDING and the customer gets a single
// off-hours notice instead of silently waiting in an unstaffed queue.
func (s *Scheduler) RequestHandoff(ctx context.Context, req dialogue.EscalationRequest) error {
	now := s.now()

	hours, err := s.hours.Resolve(req.RegionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[req.ConversationID]
	if !ok {
		conv = &Conversation{
			ConversationID: req.ConversationID,
			CustomerID:     req.CustomerID,
			RegionID:       req.RegionID,
			Channel:        req.Channel,
			Status:         StatusBot,
		}
		s.conversations[req.ConversationID] = conv
	}

	switch conv.Status {
	case StatusWaiting, StatusAssigned:
		// Already queued or with an agent. Priority may only rise.
		if p := priorityFor(s.vip(req.CustomerID)); p > conv.Priority {
			conv.Priority = p
		}
		return nil
	case StatusClosed:
		// Re-opened conversation starts the lifecycle over.
		conv.Status = StatusBot
		conv.OffHoursPending = false
	}

	if !hours.InHours(now) {
		first := !conv.OffHoursPending
		conv.OffHoursPending = true
		if first {
			conv.MarkedAt = now
			conv.Reason = req.Reason
			s.notify(conv, offHoursNotice)
			logger.InfoCF("handoff", "Conversation marked off-hours pending",
				map[string]any{"conversation_id": conv.ConversationID, "region_id": req.RegionID})
		}
		return nil
	}

	s.enqueueLocked(conv, req.Reason, now)
	s.notify(conv, queuedNotice)
	return nil
}

// enqueueLocked performs BOT → WAITING with VIP-derived priority.
// Callers hold s.mu.
func (s *Scheduler) enqueueLocked(conv *Conversation, reason string, now time.Time) {
	conv.Status = StatusWaiting
	conv.Priority = priorityFor(s.vip(conv.CustomerID))
	conv.Reason = reason
	conv.RequestedAt = now
	conv.OffHoursPending = false
	s.ids[conv.ConversationID] = uuid.NewString()

	logger.InfoCF("handoff", "Conversation queued for human agent", map[string]any{
		"conversation_id": conv.ConversationID,
		"priority":        conv.Priority,
		"reason":          reason,
	})
}

// Assign moves a WAITING conversation to an agent, or re-targets an
// ASSIGNED one (lateral transfer).
func (s *Scheduler) Assign(conversationID, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrUnknownConversation
	}
	if !canTransition(conv.Status, StatusAssigned) {
		return ErrInvalidTransition
	}
	conv.Status = StatusAssigned
	conv.AssignedAgent = agentID
	return nil
}

// Close ends the conversation from any live status.
func (s *Scheduler) Close(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrUnknownConversation
	}
	if !canTransition(conv.Status, StatusClosed) {
		return ErrInvalidTransition
	}
	conv.Status = StatusClosed
	conv.OffHoursPending = false
	delete(s.ids, conversationID)
	return nil
}

// Queue returns the agent-facing waiting list: priority descending,
// then oldest request first. The order is derived on every call from
// the live fields, never from insertion order. A non-empty regionID
// narrows the listing to that region's conversations.
func (s *Scheduler) Queue(regionID string) []QueueItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []QueueItem
	for _, conv := range s.conversations {
		if conv.Status != StatusWaiting {
			continue
		}
		if regionID != "" && conv.RegionID != regionID {
			continue
		}
		items = append(items, QueueItem{
			ID:             s.ids[conv.ConversationID],
			ConversationID: conv.ConversationID,
			CustomerID:     conv.CustomerID,
			RegionID:       conv.RegionID,
			Channel:        conv.Channel,
			Priority:       conv.Priority,
			Reason:         conv.Reason,
			RequestedAt:    conv.RequestedAt,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].RequestedAt.Before(items[j].RequestedAt)
	})
	for i := range items {
		items[i].Position = i + 1
	}
	return items
}

// QueuePosition returns the conversation's 1-based rank, computed by
// counting entries strictly ahead under the queue ordering, so it
// stays correct under concurrent arrivals. Returns 0 when the
// conversation is not waiting.
func (s *Scheduler) QueuePosition(conversationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.Status != StatusWaiting {
		return 0
	}

	ahead := 0
	for _, other := range s.conversations {
		if other.ConversationID == conversationID || other.Status != StatusWaiting {
			continue
		}
		if other.Priority > conv.Priority ||
			(other.Priority == conv.Priority && other.RequestedAt.Before(conv.RequestedAt)) {
			ahead++
		}
	}
	return ahead + 1
}

// Status returns the conversation's current lifecycle status.
func (s *Scheduler) Status(conversationID string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return "", false
	}
	return conv.Status, true
}

// Sweep re-evaluates every OFF_HOURS_PENDING conversation. A marked
// conversation is promoted when the shift just started (within the
// grace window after the region's start time) or when the marker is
// older than the forced-promotion age, which prevents starvation if
// every start-of-shift window is missed. One conversation's failure
// never aborts the rest of the sweep.
func (s *Scheduler) Sweep(ctx context.Context) SweepReport {
	now := s.now()
	grace := time.Duration(s.cfg.Handoff.StartGraceMinutes) * time.Minute
	maxAge := time.Duration(s.cfg.Handoff.ForcedPromotionHours) * time.Hour

	s.mu.Lock()
	defer s.mu.Unlock()

	var report SweepReport
	for _, conv := range s.conversations {
		if conv.Status != StatusBot || !conv.OffHoursPending {
			continue
		}
		report.Examined++

		hours, err := s.hours.Resolve(conv.RegionID)
		if err != nil {
			report.Failed++
			logger.ErrorCF("handoff", "Sweep item failed",
				map[string]any{"conversation_id": conv.ConversationID, "error": err.Error()})
			continue
		}

		forced := now.Sub(conv.MarkedAt) > maxAge
		if !forced && !hours.InStartGrace(now, grace) {
			continue
		}

		s.enqueueLocked(conv, conv.Reason, now)
		s.appendSystemTurn(ctx, conv.ConversationID, promotedNotice)
		s.notify(conv, promotedNotice)
		report.Promoted++
		if forced {
			report.Forced++
		}
	}

	if report.Examined > 0 {
		logger.InfoCF("handoff", "Sweep finished", map[string]any{
			"examined": report.Examined,
			"promoted": report.Promoted,
			"forced":   report.Forced,
			"failed":   report.Failed,
		})
	}
	return report
}

// Run drives the sweep on the configured cron schedule until the
// context is canceled. The expression is validated up front; the
// default fires every five minutes, matching the promotion grace
// window so no shift start is missed.
func (s *Scheduler) Run(ctx context.Context) error {
	expr := s.cfg.Handoff.SweepCron
	g := gronx.New()
	if !g.IsValid(expr) {
		return fmt.Errorf("handoff: invalid sweep cron %q", expr)
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			due, err := g.IsDue(expr, t)
			if err != nil {
				logger.ErrorCF("handoff", "Cron evaluation failed",
					map[string]any{"expr": expr, "error": err.Error()})
				continue
			}
			if due {
				s.Sweep(ctx)
			}
		}
	}
}

// notify delivers a one-line status message back to the customer's
// channel. Callers hold s.mu; the bus publish is non-blocking.
func (s *Scheduler) notify(conv *Conversation, text string) {
	if s.msgBus == nil {
		return
	}
	s.msgBus.PublishOutbound(bus.OutboundMessage{
		Channel:        conv.Channel,
		ConversationID: conv.ConversationID,
		Content:        text,
		RequiresHuman:  true,
	})
}

// appendSystemTurn records the promotion in the conversation history
// so agents see when and why the customer entered the queue.
func (s *Scheduler) appendSystemTurn(ctx context.Context, conversationID, text string) {
	if s.store == nil {
		return
	}
	state, err := s.store.Get(ctx, conversationID)
	if err != nil || state == nil {
		return
	}
	state.AppendTurn("system", text, systemTurnLimit)
	if err := s.store.Put(ctx, state); err != nil {
		logger.WarnCF("handoff", "Failed to record promotion turn",
			map[string]any{"conversation_id": conversationID, "error": err.Error()})
	}
}
