package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Gateway    GatewayConfig    `json:"gateway"`
	Dialogue   DialogueConfig   `json:"dialogue"`
	Classifier ClassifierConfig `json:"classifier"`
	Session    SessionConfig    `json:"session"`
	Redis      RedisConfig      `json:"redis"`
	Handoff    HandoffConfig    `json:"handoff"`
	Channels   ChannelsConfig   `json:"channels"`
	Auth       AuthConfig       `json:"auth"`
	mu         sync.RWMutex
}

type GatewayConfig struct {
	Host         string   `json:"host" env:"VOYAGENT_GATEWAY_HOST"`
	Port         int      `json:"port" env:"VOYAGENT_GATEWAY_PORT"`
	AllowOrigins []string `json:"allow_origins" env:"VOYAGENT_GATEWAY_ALLOW_ORIGINS"`
}

// DialogueConfig exposes the continuation heuristics as parameters.
// The defaults reproduce the production behavior and should only be
// changed deliberately; in particular ConfirmationTokens is an
// allow-list, not a pattern.
type DialogueConfig struct {
	HistoryLimit              int      `json:"history_limit" env:"VOYAGENT_DIALOGUE_HISTORY_LIMIT"`
	ContinuationWindowSeconds int      `json:"continuation_window_seconds" env:"VOYAGENT_DIALOGUE_CONTINUATION_WINDOW_SECONDS"`
	ShortMessageRunes         int      `json:"short_message_runes" env:"VOYAGENT_DIALOGUE_SHORT_MESSAGE_RUNES"`
	ConfirmationTokens        []string `json:"confirmation_tokens"`
}

type ClassifierConfig struct {
	Provider       string `json:"provider" env:"VOYAGENT_CLASSIFIER_PROVIDER"`
	APIKey         string `json:"api_key" env:"VOYAGENT_CLASSIFIER_API_KEY"`
	APIBase        string `json:"api_base" env:"VOYAGENT_CLASSIFIER_API_BASE"`
	Model          string `json:"model" env:"VOYAGENT_CLASSIFIER_MODEL"`
	TimeoutSeconds int    `json:"timeout_seconds" env:"VOYAGENT_CLASSIFIER_TIMEOUT_SECONDS"`
	HistoryTurns   int    `json:"history_turns" env:"VOYAGENT_CLASSIFIER_HISTORY_TURNS"`
}

type SessionConfig struct {
	Backend              string `json:"backend" env:"VOYAGENT_SESSION_BACKEND"` // memory, redis, sqlite
	Path                 string `json:"path" env:"VOYAGENT_SESSION_PATH"`
	TTLHours             int    `json:"ttl_hours" env:"VOYAGENT_SESSION_TTL_HOURS"`
	EvictionSweepMinutes int    `json:"eviction_sweep_minutes" env:"VOYAGENT_SESSION_EVICTION_SWEEP_MINUTES"`
}

type RedisConfig struct {
	Addr     string `json:"addr" env:"VOYAGENT_REDIS_ADDR"`
	Password string `json:"password" env:"VOYAGENT_REDIS_PASSWORD"`
	DB       int    `json:"db" env:"VOYAGENT_REDIS_DB"`
}

type HandoffConfig struct {
	SweepCron            string                  `json:"sweep_cron" env:"VOYAGENT_HANDOFF_SWEEP_CRON"`
	StartGraceMinutes    int                     `json:"start_grace_minutes" env:"VOYAGENT_HANDOFF_START_GRACE_MINUTES"`
	ForcedPromotionHours int                     `json:"forced_promotion_hours" env:"VOYAGENT_HANDOFF_FORCED_PROMOTION_HOURS"`
	WorkingHoursTTLMin   int                     `json:"working_hours_ttl_min" env:"VOYAGENT_HANDOFF_WORKING_HOURS_TTL_MIN"`
	DefaultRegion        string                  `json:"default_region" env:"VOYAGENT_HANDOFF_DEFAULT_REGION"`
	Regions              map[string]RegionConfig `json:"regions"`
	VIPLevels            map[string]int          `json:"vip_levels"`
}

// RegionConfig is the on-disk form of a region's working hours.
type RegionConfig struct {
	Start    string `json:"start"` // HH:MM
	End      string `json:"end"`   // HH:MM
	Timezone string `json:"timezone"`
	WorkDays []int  `json:"work_days"` // 0=Sunday .. 6=Saturday
}

type ChannelsConfig struct {
	Webhook WebhookConfig `json:"webhook"`
	Discord DiscordConfig `json:"discord"`
}

type WebhookConfig struct {
	Enabled bool   `json:"enabled" env:"VOYAGENT_CHANNELS_WEBHOOK_ENABLED"`
	Secret  string `json:"secret" env:"VOYAGENT_CHANNELS_WEBHOOK_SECRET"`
}

type DiscordConfig struct {
	Enabled   bool     `json:"enabled" env:"VOYAGENT_CHANNELS_DISCORD_ENABLED"`
	Token     string   `json:"token" env:"VOYAGENT_CHANNELS_DISCORD_TOKEN"`
	AllowFrom []string `json:"allow_from" env:"VOYAGENT_CHANNELS_DISCORD_ALLOW_FROM"`
}

type AuthConfig struct {
	JWTSecret   string `json:"jwt_secret" env:"VOYAGENT_AUTH_JWT_SECRET"`
	TokenTTLMin int    `json:"token_ttl_min" env:"VOYAGENT_AUTH_TOKEN_TTL_MIN"`
}

func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:         "0.0.0.0",
			Port:         18820,
			AllowOrigins: []string{"http://localhost:3000"},
		},
		Dialogue: DialogueConfig{
			HistoryLimit:              20,
			ContinuationWindowSeconds: 300,
			ShortMessageRunes:         10,
			ConfirmationTokens: []string{
				"好", "好的", "OK", "ok", "Ok", "對", "沒問題", "是的", "確認", "確定", "可以", "嗯",
			},
		},
		Classifier: ClassifierConfig{
			Provider:       "http",
			APIBase:        "",
			Model:          "travel-intent-v2",
			TimeoutSeconds: 8,
			HistoryTurns:   6,
		},
		Session: SessionConfig{
			Backend:              "memory",
			Path:                 "~/.voyagent/state/sessions.db",
			TTLHours:             24,
			EvictionSweepMinutes: 10,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Handoff: HandoffConfig{
			SweepCron:            "*/5 * * * *",
			StartGraceMinutes:    5,
			ForcedPromotionHours: 24,
			WorkingHoursTTLMin:   5,
			DefaultRegion:        "taipei",
			Regions: map[string]RegionConfig{
				"taipei": {
					Start:    "09:00",
					End:      "18:00",
					Timezone: "Asia/Taipei",
					WorkDays: []int{1, 2, 3, 4, 5},
				},
			},
			VIPLevels: map[string]int{},
		},
		Channels: ChannelsConfig{
			Webhook: WebhookConfig{Enabled: true},
			Discord: DiscordConfig{Enabled: false},
		},
		Auth: AuthConfig{
			TokenTTLMin: 12 * 60,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) SessionPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Session.Path)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
