package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voyagenthq/voyagent/pkg/config"
	"github.com/voyagenthq/voyagent/pkg/handoff"
)

// consoleClient is a thin client for a running gateway's agent API,
// backing the queue and sweep subcommands. It logs in with the
// configured console secret and talks JSON over HTTP.
type consoleClient struct {
	baseURL string
	secret  string
	client  *http.Client
}

func newConsoleClient(cfg *config.Config) (*consoleClient, error) {
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, fmt.Errorf("auth.jwt_secret is not set; configure it and restart the gateway")
	}
	host := cfg.Gateway.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return &consoleClient{
		baseURL: fmt.Sprintf("http://%s:%d", host, cfg.Gateway.Port),
		secret:  cfg.Auth.JWTSecret,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *consoleClient) login() (string, error) {
	body, err := json.Marshal(map[string]string{"agentId": "cli", "secret": c.secret})
	if err != nil {
		return "", err
	}
	resp, err := c.client.Post(c.baseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("reach gateway at %s (is voyagent serve running?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("console login failed: %s", resp.Status)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	return out.Token, nil
}

func (c *consoleClient) do(method, path, token string, out any) error {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("reach gateway at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func queueCmd(region string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	client, err := newConsoleClient(cfg)
	if err != nil {
		return err
	}
	token, err := client.login()
	if err != nil {
		return err
	}

	path := "/api/queue"
	if region != "" {
		path += "?region=" + url.QueryEscape(region)
	}
	var resp struct {
		Queue []handoff.QueueItem `json:"queue"`
	}
	if err := client.do(http.MethodGet, path, token, &resp); err != nil {
		return err
	}

	if len(resp.Queue) == 0 {
		fmt.Println("Queue is empty.")
		return nil
	}
	fmt.Printf("%-4s %-28s %-10s %-8s %-18s %s\n", "POS", "CONVERSATION", "CUSTOMER", "PRIO", "REASON", "WAITING SINCE")
	for _, item := range resp.Queue {
		fmt.Printf("%-4d %-28s %-10s %-8d %-18s %s\n",
			item.Position, item.ConversationID, item.CustomerID,
			item.Priority, item.Reason, item.RequestedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func sweepCmd() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	client, err := newConsoleClient(cfg)
	if err != nil {
		return err
	}
	token, err := client.login()
	if err != nil {
		return err
	}

	var report handoff.SweepReport
	if err := client.do(http.MethodPost, "/api/sweep", token, &report); err != nil {
		return err
	}

	fmt.Printf("Sweep: examined %d, promoted %d (forced %d), failed %d\n",
		report.Examined, report.Promoted, report.Forced, report.Failed)
	return nil
}
