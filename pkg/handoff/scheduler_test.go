package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/voyagenthq/voyagent/pkg/config"
	"github.com/voyagenthq/voyagent/pkg/dialogue"
)

var (
	mondayNoon   = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	sundayNoon   = time.Date(2026, 1, 4, 12, 0, 0, 0, time.UTC)
	mondayOpen   = time.Date(2026, 1, 5, 9, 2, 0, 0, time.UTC)
	mondayClosed = time.Date(2026, 1, 5, 3, 0, 0, 0, time.UTC)
)

func testScheduler(vip map[string]int) *Scheduler {
	cfg := config.DefaultConfig()
	cfg.Handoff.Regions = map[string]config.RegionConfig{"taipei": utcOffice()}
	cfg.Handoff.DefaultRegion = "taipei"
	cfg.Handoff.VIPLevels = vip
	return NewScheduler(SchedulerOptions{Config: cfg})
}

func escalation(conversationID, customerID string) dialogue.EscalationRequest {
	return dialogue.EscalationRequest{
		ConversationID: conversationID,
		CustomerID:     customerID,
		RegionID:       "taipei",
		Channel:        "webhook",
		Reason:         "BOOKING",
	}
}

func TestPriorityFor(t *testing.T) {
	cases := []struct {
		vip, want int
	}{
		{0, PriorityNormal}, {1, PriorityNormal},
		{2, PriorityHigh}, {3, PriorityHigh},
		{4, PriorityVIP}, {9, PriorityVIP},
	}
	for _, tc := range cases {
		if got := priorityFor(tc.vip); got != tc.want {
			t.Errorf("priorityFor(%d) = %d, want %d", tc.vip, got, tc.want)
		}
	}
}

func TestQueueOrdering(t *testing.T) {
	s := testScheduler(map[string]int{"vip": 5, "plus": 2})
	ctx := context.Background()

	clock := mondayNoon
	s.now = func() time.Time { return clock }

	// Arrival order: normal, VIP, plus-tier, second normal.
	for _, c := range []struct{ conv, cust string }{
		{"c-normal-1", "nobody"},
		{"c-vip", "vip"},
		{"c-plus", "plus"},
		{"c-normal-2", "nobody"},
	} {
		if err := s.RequestHandoff(ctx, escalation(c.conv, c.cust)); err != nil {
			t.Fatalf("request %s: %v", c.conv, err)
		}
		clock = clock.Add(time.Minute)
	}

	q := s.Queue("")
	got := make([]string, len(q))
	for i, item := range q {
		got[i] = item.ConversationID
	}
	want := []string{"c-vip", "c-plus", "c-normal-1", "c-normal-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("queue order = %v, want %v", got, want)
		}
	}

	if pos := s.QueuePosition("c-normal-2"); pos != 4 {
		t.Fatalf("c-normal-2 position = %d, want 4", pos)
	}
	if pos := s.QueuePosition("c-vip"); pos != 1 {
		t.Fatalf("c-vip position = %d, want 1", pos)
	}
	if pos := s.QueuePosition("nonexistent"); pos != 0 {
		t.Fatalf("unknown conversation position = %d, want 0", pos)
	}
}

func TestQueueRegionFilter(t *testing.T) {
	s := testScheduler(nil)
	s.cfg.Handoff.Regions["kaohsiung"] = utcOffice()
	s.now = func() time.Time { return mondayNoon }
	ctx := context.Background()

	s.RequestHandoff(ctx, escalation("c-tpe", "cust"))
	south := escalation("c-khh", "cust")
	south.RegionID = "kaohsiung"
	s.RequestHandoff(ctx, south)

	if q := s.Queue(""); len(q) != 2 {
		t.Fatalf("unfiltered queue length = %d, want 2", len(q))
	}
	q := s.Queue("kaohsiung")
	if len(q) != 1 || q[0].ConversationID != "c-khh" {
		t.Fatalf("filtered queue = %+v", q)
	}
	if q[0].RegionID != "kaohsiung" {
		t.Fatalf("queue item region = %q", q[0].RegionID)
	}
	if q[0].Position != 1 {
		t.Fatalf("filtered position = %d, want 1", q[0].Position)
	}
}

func TestRepeatedRequestNeverLowersPriority(t *testing.T) {
	vip := map[string]int{"cust": 4}
	s := testScheduler(vip)
	s.now = func() time.Time { return mondayNoon }
	ctx := context.Background()

	if err := s.RequestHandoff(ctx, escalation("c1", "cust")); err != nil {
		t.Fatalf("request: %v", err)
	}
	// Tier downgrade between requests must not demote the queued entry.
	vip["cust"] = 0
	if err := s.RequestHandoff(ctx, escalation("c1", "cust")); err != nil {
		t.Fatalf("repeat request: %v", err)
	}

	q := s.Queue("")
	if len(q) != 1 || q[0].Priority != PriorityVIP {
		t.Fatalf("expected single VIP entry, got %+v", q)
	}
}

func TestOffHoursMarksInsteadOfQueueing(t *testing.T) {
	s := testScheduler(nil)
	s.now = func() time.Time { return sundayNoon }
	ctx := context.Background()

	if err := s.RequestHandoff(ctx, escalation("c-off", "cust")); err != nil {
		t.Fatalf("request: %v", err)
	}
	if len(s.Queue("")) != 0 {
		t.Fatalf("off-hours request must not enter the queue")
	}
	status, ok := s.Status("c-off")
	if !ok || status != StatusBot {
		t.Fatalf("status = %v, want BOT", status)
	}
	s.mu.RLock()
	conv := s.conversations["c-off"]
	s.mu.RUnlock()
	if !conv.OffHoursPending || conv.MarkedAt.IsZero() {
		t.Fatalf("expected OFF_HOURS_PENDING marker, got %+v", conv)
	}

	// A second off-hours escalation keeps the original mark time.
	marked := conv.MarkedAt
	s.now = func() time.Time { return sundayNoon.Add(time.Hour) }
	if err := s.RequestHandoff(ctx, escalation("c-off", "cust")); err != nil {
		t.Fatalf("repeat request: %v", err)
	}
	if !conv.MarkedAt.Equal(marked) {
		t.Fatalf("repeat marking must not reset MarkedAt")
	}
}

func TestSweepPromotesAtShiftStart(t *testing.T) {
	s := testScheduler(map[string]int{"vip": 5})
	ctx := context.Background()

	s.now = func() time.Time { return sundayNoon }
	s.RequestHandoff(ctx, escalation("c-a", "nobody"))
	s.RequestHandoff(ctx, escalation("c-b", "vip"))

	// Middle of the night: inside neither hours nor grace, marker young.
	s.now = func() time.Time { return mondayClosed }
	if rep := s.Sweep(ctx); rep.Promoted != 0 || rep.Examined != 2 {
		t.Fatalf("night sweep report = %+v", rep)
	}

	// Two minutes into Monday's shift: both promote, VIP first in queue.
	s.now = func() time.Time { return mondayOpen }
	rep := s.Sweep(ctx)
	if rep.Promoted != 2 || rep.Forced != 0 || rep.Failed != 0 {
		t.Fatalf("shift-start sweep report = %+v", rep)
	}

	q := s.Queue("")
	if len(q) != 2 || q[0].ConversationID != "c-b" {
		t.Fatalf("expected VIP first after promotion, got %+v", q)
	}

	// Idempotent: nothing left to examine.
	if rep := s.Sweep(ctx); rep.Examined != 0 {
		t.Fatalf("second sweep should find nothing, got %+v", rep)
	}
}

func TestSweepForcedPromotionAfterMaxAge(t *testing.T) {
	s := testScheduler(nil)
	ctx := context.Background()

	s.now = func() time.Time { return sundayNoon }
	s.RequestHandoff(ctx, escalation("c-stale", "cust"))

	// Nearly 39 hours later, at an instant that is outside working
	// hours and outside any grace window: force alone must promote.
	s.now = func() time.Time { return time.Date(2026, 1, 6, 3, 0, 0, 0, time.UTC) }
	rep := s.Sweep(ctx)
	if rep.Promoted != 1 || rep.Forced != 1 {
		t.Fatalf("forced sweep report = %+v", rep)
	}
	status, _ := s.Status("c-stale")
	if status != StatusWaiting {
		t.Fatalf("status = %v, want WAITING", status)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	s := testScheduler(nil)
	s.now = func() time.Time { return mondayNoon }
	ctx := context.Background()

	if err := s.Assign("ghost", "agent-1"); err != ErrUnknownConversation {
		t.Fatalf("assign unknown: %v", err)
	}

	s.RequestHandoff(ctx, escalation("c1", "cust"))
	if err := s.Assign("c1", "agent-1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Lateral transfer keeps ASSIGNED.
	if err := s.Assign("c1", "agent-2"); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	status, _ := s.Status("c1")
	if status != StatusAssigned {
		t.Fatalf("status = %v, want ASSIGNED", status)
	}

	if err := s.Close("c1"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Assign("c1", "agent-3"); err != ErrInvalidTransition {
		t.Fatalf("assign after close: %v", err)
	}
	if err := s.Close("c1"); err != ErrInvalidTransition {
		t.Fatalf("double close: %v", err)
	}
}
