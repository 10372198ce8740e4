package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voyagenthq/voyagent/pkg/session"
)

func TestHTTPClassifier_Classify(t *testing.T) {
	var gotReq classifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Result{
			Intent:     "BOOKING",
			Confidence: 0.93,
			Entities:   map[string]string{"DESTINATION": "東京"},
		})
	}))
	defer srv.Close()

	c := NewHTTPClassifier(HTTPOptions{APIBase: srv.URL, Model: "travel-intent-v2", HistoryTurns: 2})
	history := []session.Turn{
		{Role: "user", Text: "你好"},
		{Role: "assistant", Text: "您好，請問需要什麼協助？"},
		{Role: "user", Text: "我想訂機票"},
	}
	res, err := c.Classify(context.Background(), "我想訂去東京的機票", history)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Intent != "BOOKING" || res.Entities["DESTINATION"] != "東京" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(gotReq.History) != 2 {
		t.Fatalf("expected history trimmed to 2 turns, got %d", len(gotReq.History))
	}
}

func TestHTTPClassifier_MalformedPayloadIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"confidence": 0.5}`)) // no intent
	}))
	defer srv.Close()

	c := NewHTTPClassifier(HTTPOptions{APIBase: srv.URL})
	if _, err := c.Classify(context.Background(), "hi", nil); err == nil {
		t.Fatalf("expected error for payload without intent")
	}
}

func TestHTTPClassifier_TimeoutIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewHTTPClassifier(HTTPOptions{APIBase: srv.URL, Timeout: 20 * time.Millisecond})
	if _, err := c.Classify(context.Background(), "hi", nil); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestCreate_UnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Classifier.Provider = "quantum"
	if _, err := Create(cfg); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestCreate_NoneProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Classifier.Provider = "none"
	c, err := Create(cfg)
	if err != nil {
		t.Fatalf("create none provider: %v", err)
	}
	if _, err := c.Classify(context.Background(), "hi", nil); err != ErrUnavailable {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
