package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voyagenthq/voyagent/pkg/session"
)

// HTTPClassifier posts the message plus recent history to a remote
// classification endpoint. This call is the most expensive step of a
// turn; the request carries its own timeout on top of the caller's
// context so a slow oracle cannot stall message processing.
type HTTPClassifier struct {
	apiKey       string
	apiBase      string
	model        string
	historyTurns int
	httpClient   *http.Client
}

type HTTPOptions struct {
	APIKey       string
	APIBase      string
	Model        string
	Timeout      time.Duration
	HistoryTurns int
}

func NewHTTPClassifier(opts HTTPOptions) *HTTPClassifier {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	historyTurns := opts.HistoryTurns
	if historyTurns <= 0 {
		historyTurns = 6
	}
	return &HTTPClassifier{
		apiKey:       opts.APIKey,
		apiBase:      strings.TrimRight(opts.APIBase, "/"),
		model:        opts.Model,
		historyTurns: historyTurns,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClassifier) Name() string { return "http" }

type classifyRequest struct {
	Model   string        `json:"model"`
	Message string        `json:"message"`
	History []historyTurn `json:"history"`
}

type historyTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, message string, history []session.Turn) (*Result, error) {
	if c.apiBase == "" {
		return nil, fmt.Errorf("classifier API base not configured")
	}

	if len(history) > c.historyTurns {
		history = history[len(history)-c.historyTurns:]
	}
	reqBody := classifyRequest{Model: c.model, Message: message}
	for _, t := range history {
		reqBody.History = append(reqBody.History, historyTurn{Role: t.Role, Text: t.Text})
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v1/classify", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read classify response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classify request failed: status %d body %s", resp.StatusCode, string(body))
	}

	return parseResult(body)
}

func parseResult(body []byte) (*Result, error) {
	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse classify response: %w", err)
	}
	if strings.TrimSpace(result.Intent) == "" {
		return nil, fmt.Errorf("classify response missing intent: %s", string(body))
	}
	if result.Entities == nil {
		result.Entities = map[string]string{}
	}
	return &result, nil
}
