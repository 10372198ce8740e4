package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagenthq/voyagent/pkg/classifier"
	"github.com/voyagenthq/voyagent/pkg/config"
	"github.com/voyagenthq/voyagent/pkg/dialogue"
	"github.com/voyagenthq/voyagent/pkg/faq"
	"github.com/voyagenthq/voyagent/pkg/handoff"
	"github.com/voyagenthq/voyagent/pkg/session"
)

type staticClassifier struct {
	result classifier.Result
}

func (s staticClassifier) Name() string { return "static" }
func (s staticClassifier) Classify(ctx context.Context, message string, history []session.Turn) (*classifier.Result, error) {
	r := s.result
	return &r, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Channels.Webhook.Enabled = true
	cfg.Handoff.Regions = map[string]config.RegionConfig{
		"taipei": {Start: "00:00", End: "23:59", Timezone: "UTC", WorkDays: []int{0, 1, 2, 3, 4, 5, 6}},
	}

	store, err := session.NewStore(session.BackendMemory)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	entries, err := faq.LoadEmbedded()
	require.NoError(t, err)

	scheduler := handoff.NewScheduler(handoff.SchedulerOptions{Config: cfg, Store: store})
	engine := dialogue.NewEngine(dialogue.Options{
		Config:     cfg,
		Store:      store,
		Classifier: staticClassifier{result: classifier.Result{Intent: "TRANSFER_TO_HUMAN", Confidence: 0.99}},
		Ranker:     faq.NewRanker(entries),
		Escalator:  scheduler,
	})

	return New(cfg, engine, scheduler)
}

func postJSON(t *testing.T, srv *Server, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, srv *Server, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func login(t *testing.T, srv *Server) string {
	t.Helper()
	w := postJSON(t, srv, "/api/auth/login", "", map[string]string{
		"agentId": "agent-1",
		"secret":  "test-secret",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestWebhookRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv, "/webhook/line", "", map[string]any{
		"conversationId": "conv-1",
		"customerId":     "cust-1",
		"regionId":       "taipei",
		"message":        "我要找真人客服",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp webhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TRANSFER_TO_HUMAN", resp.Intent)
	assert.True(t, resp.RequiresHuman)
	assert.NotEmpty(t, resp.Reply)
}

func TestWebhookRejectsMissingFields(t *testing.T) {
	srv := newTestServer(t)
	w := postJSON(t, srv, "/webhook/line", "", map[string]any{"conversationId": "conv-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookSecret(t *testing.T) {
	srv := newTestServer(t)
	srv.cfg.Channels.Webhook.Secret = "hook-secret"

	w := postJSON(t, srv, "/webhook/line", "", map[string]any{
		"conversationId": "conv-1",
		"message":        "hi",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQueueAPIRequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, getJSON(t, srv, "/api/queue", "").Code)
	assert.Equal(t, http.StatusUnauthorized, getJSON(t, srv, "/api/queue", "garbage").Code)
}

func TestQueueLifecycleViaAPI(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	// Escalate one conversation through the webhook (always in hours
	// in the test region config).
	w := postJSON(t, srv, "/webhook/line", "", map[string]any{
		"conversationId": "conv-q",
		"customerId":     "cust-1",
		"regionId":       "taipei",
		"message":        "我要找真人客服",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = getJSON(t, srv, "/api/queue", token)
	require.Equal(t, http.StatusOK, w.Code)
	var queueResp struct {
		Queue []handoff.QueueItem `json:"queue"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queueResp))
	require.Len(t, queueResp.Queue, 1)
	conversationID := queueResp.Queue[0].ConversationID

	w = getJSON(t, srv, "/api/queue/"+conversationID+"/position", token)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = postJSON(t, srv, "/api/queue/"+conversationID+"/assign", token, map[string]string{"agentId": "agent-7"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = postJSON(t, srv, "/api/queue/"+conversationID+"/close", token, struct{}{})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = getJSON(t, srv, "/api/queue/"+conversationID+"/position", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueRegionQueryParam(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	w := postJSON(t, srv, "/webhook/line", "", map[string]any{
		"conversationId": "conv-r",
		"customerId":     "cust-1",
		"regionId":       "taipei",
		"message":        "我要找真人客服",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var queueResp struct {
		Queue []handoff.QueueItem `json:"queue"`
	}
	w = getJSON(t, srv, "/api/queue?region=taipei", token)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queueResp))
	assert.Len(t, queueResp.Queue, 1)

	w = getJSON(t, srv, "/api/queue?region=kaohsiung", token)
	require.Equal(t, http.StatusOK, w.Code)
	queueResp.Queue = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queueResp))
	assert.Empty(t, queueResp.Queue)
}

func TestAssignUnknownConversation(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	w := postJSON(t, srv, "/api/queue/ghost/assign", token, map[string]string{"agentId": "a"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSweepEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	w := postJSON(t, srv, "/api/sweep", token, struct{}{})
	require.Equal(t, http.StatusOK, w.Code)
	var report handoff.SweepReport
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, http.StatusOK, getJSON(t, srv, "/health", "").Code)
	assert.Equal(t, http.StatusOK, getJSON(t, srv, "/ready", "").Code)
}

func TestTokenExpiry(t *testing.T) {
	token, err := GenerateToken("agent-1", "agent", "s3cr3t", -time.Minute)
	require.NoError(t, err)
	_, err = validateToken(token, "s3cr3t")
	assert.Error(t, err, "expired token must not validate")

	token, err = GenerateToken("agent-1", "agent", "s3cr3t", time.Hour)
	require.NoError(t, err)
	claims, err := validateToken(token, "s3cr3t")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", claims.AgentID)

	_, err = validateToken(token, "wrong")
	assert.Error(t, err, "wrong secret must not validate")
}
