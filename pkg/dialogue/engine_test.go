package dialogue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/voyagenthq/voyagent/pkg/bus"
	"github.com/voyagenthq/voyagent/pkg/classifier"
	"github.com/voyagenthq/voyagent/pkg/config"
	"github.com/voyagenthq/voyagent/pkg/entity"
	"github.com/voyagenthq/voyagent/pkg/faq"
	"github.com/voyagenthq/voyagent/pkg/session"
)

type fakeClassifier struct {
	mu     sync.Mutex
	result *classifier.Result
	err    error
	calls  int
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) Classify(ctx context.Context, message string, history []session.Turn) (*classifier.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingEscalator struct {
	mu       sync.Mutex
	requests []EscalationRequest
}

func (r *recordingEscalator) RequestHandoff(ctx context.Context, req EscalationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return nil
}

func newTestEngine(t *testing.T, c classifier.Classifier, esc Escalator) (*Engine, session.Store) {
	t.Helper()
	store, err := session.NewStore(session.BackendMemory)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	entries, err := faq.LoadEmbedded()
	if err != nil {
		t.Fatalf("load corpus: %v", err)
	}

	return NewEngine(Options{
		Config:     config.DefaultConfig(),
		Store:      store,
		Classifier: c,
		Ranker:     faq.NewRanker(entries),
		Escalator:  esc,
	}), store
}

func inbound(conversationID, content string) bus.InboundMessage {
	return bus.InboundMessage{
		Channel:        "webhook",
		ConversationID: conversationID,
		CustomerID:     "cust-1",
		RegionID:       "taipei",
		Content:        content,
	}
}

func TestBookingSlotFillingConvergence(t *testing.T) {
	fc := &fakeClassifier{result: &classifier.Result{Intent: "BOOKING", Confidence: 0.92}}
	esc := &recordingEscalator{}
	eng, store := newTestEngine(t, fc, esc)
	ctx := context.Background()

	r1 := eng.HandleMessage(ctx, inbound("conv-1", "我想訂去東京的機票"))
	if r1.Intent != IntentBooking {
		t.Fatalf("turn 1 intent = %v, want BOOKING", r1.Intent)
	}
	if r1.IsContinuation {
		t.Fatalf("turn 1 must not be a continuation")
	}
	if len(r1.AwaitingInfo) == 0 {
		t.Fatalf("turn 1 should be awaiting slots, got none")
	}

	r2 := eng.HandleMessage(ctx, inbound("conv-1", "3/26"))
	if !r2.IsContinuation {
		t.Fatalf("turn 2 (bare date) must continue the open booking flow")
	}
	if r2.Intent != IntentBooking {
		t.Fatalf("turn 2 intent = %v, want BOOKING preserved", r2.Intent)
	}

	r3 := eng.HandleMessage(ctx, inbound("conv-1", "2位"))
	if !r3.IsContinuation {
		t.Fatalf("turn 3 (passenger count) must continue")
	}
	if len(r3.AwaitingInfo) != 1 || r3.AwaitingInfo[0] != entity.SlotConfirmation {
		t.Fatalf("turn 3 should await explicit confirmation, got %v", r3.AwaitingInfo)
	}

	r4 := eng.HandleMessage(ctx, inbound("conv-1", "確認"))
	if !r4.RequiresHuman {
		t.Fatalf("confirmed booking must require a human operator")
	}

	state, err := store.Get(ctx, "conv-1")
	if err != nil || state == nil {
		t.Fatalf("load final state: %v", err)
	}
	if state.Dialogue != nil {
		t.Fatalf("completed flow must clear dialogue state, got %+v", state.Dialogue)
	}
	if got := state.Entities[entity.SlotDestination]; got != "東京" {
		t.Fatalf("destination = %q, want 東京", got)
	}

	// Turns 2-4 are continuations: the oracle runs once for the whole flow.
	if fc.callCount() != 1 {
		t.Fatalf("classifier called %d times, want 1", fc.callCount())
	}

	esc.mu.Lock()
	defer esc.mu.Unlock()
	if len(esc.requests) != 1 || esc.requests[0].Reason != "BOOKING" {
		t.Fatalf("expected one BOOKING escalation, got %+v", esc.requests)
	}
}

func TestContinuationWindow(t *testing.T) {
	fc := &fakeClassifier{result: &classifier.Result{Intent: "QUOTE", Confidence: 0.8}}
	eng, store := newTestEngine(t, fc, nil)
	ctx := context.Background()

	seed := func(askedAt time.Time) {
		state := session.NewConversationState("conv-w")
		state.Dialogue = &session.DialogueState{
			CurrentIntent: "BOOKING",
			AwaitingSlots: []entity.Slot{entity.SlotDate},
			CollectedInfo: map[entity.Slot]string{entity.SlotDestination: "東京", entity.SlotPassengerCount: "2"},
			LastAskedAt:   askedAt,
		}
		if err := store.Put(ctx, state); err != nil {
			t.Fatalf("seed state: %v", err)
		}
	}

	seed(time.Now().Add(-1 * time.Minute))
	r := eng.HandleMessage(ctx, inbound("conv-w", "3/26"))
	if !r.IsContinuation {
		t.Fatalf("1-minute-old question must accept a continuation")
	}
	if r.Intent != IntentBooking {
		t.Fatalf("continuation must keep the open intent, got %v", r.Intent)
	}

	seed(time.Now().Add(-10 * time.Minute))
	r = eng.HandleMessage(ctx, inbound("conv-w", "3/26"))
	if r.IsContinuation {
		t.Fatalf("10-minute-old question is stale; message must re-classify")
	}
	if r.Intent != IntentQuote {
		t.Fatalf("stale continuation should adopt the fresh classification, got %v", r.Intent)
	}
}

func TestClassifierFailureFallsBackToUnknown(t *testing.T) {
	fc := &fakeClassifier{err: fmt.Errorf("oracle down")}
	esc := &recordingEscalator{}
	eng, _ := newTestEngine(t, fc, esc)

	r := eng.HandleMessage(context.Background(), inbound("conv-f", "xyzzy 完全無關的訊息"))
	if r.Intent != IntentUnknown {
		t.Fatalf("classifier failure must downgrade to UNKNOWN, got %v", r.Intent)
	}
	if !r.RequiresHuman {
		t.Fatalf("no FAQ match for gibberish should escalate to a human")
	}
	if r.Text == "" {
		t.Fatalf("user must still receive a reply")
	}
}

func TestUnknownIntentAnswersFromCorpus(t *testing.T) {
	fc := &fakeClassifier{err: fmt.Errorf("oracle down")}
	eng, _ := newTestEngine(t, fc, nil)

	r := eng.HandleMessage(context.Background(), inbound("conv-faq", "託運行李的限重是多少？"))
	if r.RequiresHuman {
		t.Fatalf("corpus-answerable question must not escalate, reply: %s", r.Text)
	}
	if r.Text == "" {
		t.Fatalf("expected an answer from the corpus")
	}
}

type panicClassifier struct{}

func (panicClassifier) Name() string { return "panic" }
func (panicClassifier) Classify(ctx context.Context, message string, history []session.Turn) (*classifier.Result, error) {
	panic("boom")
}

func TestPanicYieldsSafeReply(t *testing.T) {
	esc := &recordingEscalator{}
	eng, _ := newTestEngine(t, panicClassifier{}, esc)

	r := eng.HandleMessage(context.Background(), inbound("conv-p", "hello"))
	if !r.RequiresHuman {
		t.Fatalf("recovered panic must escalate")
	}
	if r.Text != safeFallbackReply {
		t.Fatalf("expected the safe fallback reply, got %q", r.Text)
	}
}

func TestGreetingLeavesNoDialogueState(t *testing.T) {
	fc := &fakeClassifier{result: &classifier.Result{Intent: "GREETING", Confidence: 0.99}}
	eng, store := newTestEngine(t, fc, nil)
	ctx := context.Background()

	r := eng.HandleMessage(ctx, inbound("conv-g", "哈囉你好，請問有人在嗎？"))
	if r.RequiresHuman {
		t.Fatalf("greeting must not escalate")
	}
	state, _ := store.Get(ctx, "conv-g")
	if state.Dialogue != nil {
		t.Fatalf("greeting must not open a slot-filling flow")
	}
}

func TestHistoryTrimmedToLimit(t *testing.T) {
	fc := &fakeClassifier{result: &classifier.Result{Intent: "GREETING", Confidence: 0.99}}
	eng, store := newTestEngine(t, fc, nil)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		eng.HandleMessage(ctx, inbound("conv-h", fmt.Sprintf("訊息 %d 你好嗎？", i)))
	}
	state, _ := store.Get(ctx, "conv-h")
	if len(state.History) != 20 {
		t.Fatalf("history length = %d, want trimmed to 20", len(state.History))
	}
	// Arrival order preserved across the trim.
	last := state.History[len(state.History)-2]
	if last.Role != "user" || last.Text != "訊息 29 你好嗎？" {
		t.Fatalf("unexpected newest user turn: %+v", last)
	}
}

func TestConcurrentTurnsSameConversationSerialize(t *testing.T) {
	fc := &fakeClassifier{result: &classifier.Result{Intent: "GREETING", Confidence: 0.99}}
	eng, store := newTestEngine(t, fc, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			eng.HandleMessage(ctx, inbound("conv-c", fmt.Sprintf("並發訊息 %d 請問？", n)))
		}(i)
	}
	wg.Wait()

	state, _ := store.Get(ctx, "conv-c")
	if len(state.History) != 16 {
		t.Fatalf("8 serialized turns should leave 16 history entries, got %d", len(state.History))
	}
}

func TestClassifierEntityOverridesSessionMemory(t *testing.T) {
	fc := &fakeClassifier{result: &classifier.Result{
		Intent:     "QUOTE",
		Confidence: 0.9,
		Entities:   map[string]string{string(entity.SlotDestination): "大阪"},
	}}
	eng, store := newTestEngine(t, fc, nil)
	ctx := context.Background()

	seeded := session.NewConversationState("conv-m")
	seeded.Entities[entity.SlotDestination] = "東京"
	if err := store.Put(ctx, seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := eng.HandleMessage(ctx, inbound("conv-m", "那改成大阪的話多少錢"))
	if got := r.Entities[entity.SlotDestination]; got != "大阪" {
		t.Fatalf("fresh classifier entity must win the merge, got %q", got)
	}
}

func TestRunReturnsWhenBusCloses(t *testing.T) {
	fc := &fakeClassifier{result: &classifier.Result{Intent: "GREETING", Confidence: 0.9}}
	eng, _ := newTestEngine(t, fc, nil)
	eng.msgBus = bus.NewMessageBus()

	done := make(chan struct{})
	go func() {
		eng.Run(context.Background())
		close(done)
	}()

	eng.msgBus.PublishInbound(inbound("conv-close", "你好"))
	eng.msgBus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run must return once the bus is closed")
	}
}
