package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/voyagenthq/voyagent/pkg/bus"
	"github.com/voyagenthq/voyagent/pkg/channels"
	"github.com/voyagenthq/voyagent/pkg/classifier"
	"github.com/voyagenthq/voyagent/pkg/config"
	"github.com/voyagenthq/voyagent/pkg/dialogue"
	"github.com/voyagenthq/voyagent/pkg/faq"
	"github.com/voyagenthq/voyagent/pkg/handoff"
	"github.com/voyagenthq/voyagent/pkg/logger"
	"github.com/voyagenthq/voyagent/pkg/server"
	"github.com/voyagenthq/voyagent/pkg/session"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

const appName = "voyagent"

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	fmt.Printf("  Go: %s\n", goVer)
}

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".voyagent", "config.json")
}

func loadConfig() (*config.Config, error) {
	// A local .env is optional; environment overlays still apply
	// through config.LoadConfig.
	_ = godotenv.Load()
	return config.LoadConfig(getConfigPath())
}

func onboard() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
		fmt.Print("Overwrite? (y/n): ")
		reader := bufio.NewReader(os.Stdin)
		response, readErr := reader.ReadString('\n')
		if readErr != nil {
			return fmt.Errorf("read input: %w", readErr)
		}
		response = strings.ToLower(strings.TrimSpace(response))
		if response != "y" && response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(configPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("%s is ready!\n", appName)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Add your classifier endpoint to", configPath, "(classifier.api_base)")
	fmt.Println("  2. Set auth.jwt_secret for the agent console API")
	fmt.Println("  3. Chat locally: voyagent chat")
	fmt.Println("  4. Run the gateway: voyagent serve")
	fmt.Println("  5. Check readiness: voyagent status")
	return nil
}

func buildStore(cfg *config.Config) (session.Store, error) {
	ttl := time.Duration(cfg.Session.TTLHours) * time.Hour

	switch session.Backend(cfg.Session.Backend) {
	case session.BackendMemory:
		return session.NewStore(session.BackendMemory, session.WithTTL(ttl))
	case session.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return session.NewStore(session.BackendRedis, session.WithTTL(ttl), session.WithRedisClient(client))
	case session.BackendSQLite:
		return session.NewStore(session.BackendSQLite, session.WithTTL(ttl), session.WithPath(cfg.SessionPath()))
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

func buildEngine(cfg *config.Config, store session.Store, escalator dialogue.Escalator, msgBus *bus.MessageBus) (*dialogue.Engine, error) {
	oracle, err := classifier.Create(cfg)
	if err != nil {
		return nil, fmt.Errorf("create classifier: %w", err)
	}

	entries, err := faq.LoadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load FAQ corpus: %w", err)
	}

	return dialogue.NewEngine(dialogue.Options{
		Config:     cfg,
		Store:      store,
		Classifier: oracle,
		Ranker:     faq.NewRanker(entries),
		Escalator:  escalator,
		Bus:        msgBus,
	}), nil
}

func chatCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Local chat works rule-based when no oracle is configured.
	if strings.TrimSpace(cfg.Classifier.APIBase) == "" {
		cfg.Classifier.Provider = classifier.ProviderNone
	}

	store, err := session.NewStore(session.BackendMemory)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := buildEngine(cfg, store, nil, nil)
	if err != nil {
		return err
	}

	fmt.Printf("%s interactive chat (Ctrl+C to exit)\n\n", appName)
	return chatLoop(engine)
}

func chatLoop(engine *dialogue.Engine) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "你: ",
		HistoryFile:     filepath.Join(os.TempDir(), ".voyagent_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	ctx := context.Background()
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\n再見！")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("再見！")
			return nil
		}

		reply := engine.HandleMessage(ctx, bus.InboundMessage{
			Channel:        "cli",
			ConversationID: "cli:local",
			CustomerID:     "local-user",
			Content:        input,
		})

		fmt.Printf("\n%s: %s\n", appName, reply.Text)
		if len(reply.SuggestedActions) > 0 {
			fmt.Printf("  （%s）\n", strings.Join(reply.SuggestedActions, " / "))
		}
		if reply.RequiresHuman {
			fmt.Println("  [轉接真人客服]")
		}
		fmt.Println()
	}
}

func serveCmd(debug bool) error {
	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		fmt.Println("Warning: auth.jwt_secret is empty; the agent console API will reject all logins")
	}

	store, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("build session store: %w", err)
	}
	defer store.Close()

	msgBus := bus.NewMessageBus()
	defer msgBus.Close()

	scheduler := handoff.NewScheduler(handoff.SchedulerOptions{
		Config: cfg,
		Bus:    msgBus,
		Store:  store,
	})

	engine, err := buildEngine(cfg, store, scheduler, msgBus)
	if err != nil {
		return err
	}

	channelManager, err := channels.NewManager(cfg, msgBus)
	if err != nil {
		return fmt.Errorf("create channel manager: %w", err)
	}

	srv := server.New(cfg, engine, scheduler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if ev, ok := store.(interface {
		StartEviction(ctx context.Context, interval time.Duration)
	}); ok {
		ev.StartEviction(ctx, time.Duration(cfg.Session.EvictionSweepMinutes)*time.Minute)
	}

	go func() {
		if err := engine.Run(ctx); err != nil {
			logger.ErrorCF("main", "Engine stopped", map[string]any{"error": err.Error()})
		}
	}()
	go func() {
		if err := scheduler.Run(ctx); err != nil {
			logger.ErrorCF("main", "Sweep scheduler stopped", map[string]any{"error": err.Error()})
		}
	}()

	if err := channelManager.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Run(ctx) }()

	fmt.Printf("✓ Gateway listening on %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		fmt.Println("\nShutting down...")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	cancel()
	engine.Stop()
	channelManager.StopAll(context.Background())
	fmt.Println("✓ Gateway stopped")
	return nil
}

func statusCmd() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	configPath := getConfigPath()

	fmt.Printf("%s Status\n", appName)
	fmt.Printf("Version: %s\n\n", formatVersion())

	mark := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "not set"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Config:", configPath, "✓")
	} else {
		fmt.Println("Config:", configPath, "✗ (run: voyagent onboard)")
	}

	fmt.Printf("Session backend: %s\n", cfg.Session.Backend)
	if session.Backend(cfg.Session.Backend) == session.BackendSQLite {
		dbPath := cfg.SessionPath()
		if _, err := os.Stat(dbPath); err == nil {
			fmt.Println("Session DB:", dbPath, "✓")
		} else {
			fmt.Println("Session DB:", dbPath, "not initialized")
		}
	}

	classifierReady := strings.TrimSpace(cfg.Classifier.APIBase) != ""
	authReady := strings.TrimSpace(cfg.Auth.JWTSecret) != ""
	discordReady := strings.TrimSpace(cfg.Channels.Discord.Token) != ""

	fmt.Println("Classifier endpoint:", mark(classifierReady))
	fmt.Println("Console JWT secret:", mark(authReady))
	fmt.Println("Discord token:", mark(discordReady))
	fmt.Println("Regions configured:", len(cfg.Handoff.Regions))
	fmt.Println("Gateway ready:", mark(authReady))
	return nil
}
