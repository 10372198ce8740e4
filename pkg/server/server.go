package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/voyagenthq/voyagent/pkg/bus"
	"github.com/voyagenthq/voyagent/pkg/config"
	"github.com/voyagenthq/voyagent/pkg/dialogue"
	"github.com/voyagenthq/voyagent/pkg/handoff"
	"github.com/voyagenthq/voyagent/pkg/logger"
)

// Server is the HTTP gateway: the webhook transport for inbound
// customer messages plus the JWT-guarded agent console API over the
// handoff queue.
type Server struct {
	cfg       *config.Config
	engine    *dialogue.Engine
	scheduler *handoff.Scheduler
	router    *gin.Engine
	httpSrv   *http.Server
	startedAt time.Time
}

func New(cfg *config.Config, engine *dialogue.Engine, scheduler *handoff.Scheduler) *Server {
	s := &Server{
		cfg:       cfg,
		engine:    engine,
		scheduler: scheduler,
		startedAt: time.Now(),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.Gateway.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", s.handleHealth)
	r.GET("/ready", s.handleReady)

	if s.cfg.Channels.Webhook.Enabled {
		r.POST("/webhook/:channel", s.handleWebhook)
	}

	api := r.Group("/api")
	{
		api.POST("/auth/login", s.handleLogin)

		authorized := api.Group("/")
		authorized.Use(authMiddleware(s.cfg.Auth.JWTSecret))
		{
			authorized.GET("/queue", s.handleQueue)
			authorized.GET("/queue/:conversationId/position", s.handleQueuePosition)
			authorized.POST("/queue/:conversationId/assign", s.handleAssign)
			authorized.POST("/queue/:conversationId/close", s.handleClose)
			authorized.POST("/sweep", s.handleSweep)
		}
	}

	return r
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves until ctx is canceled, then drains with a short shutdown
// grace period.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
	s.httpSrv = &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoCF("server", "HTTP gateway listening", map[string]any{"addr": addr})
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

type webhookRequest struct {
	ConversationID string            `json:"conversationId" binding:"required"`
	CustomerID     string            `json:"customerId"`
	RegionID       string            `json:"regionId"`
	Message        string            `json:"message" binding:"required"`
	Metadata       map[string]string `json:"metadata"`
}

type webhookResponse struct {
	Reply            string   `json:"reply"`
	Intent           string   `json:"intent"`
	Confidence       float64  `json:"confidence"`
	RequiresHuman    bool     `json:"requiresHuman"`
	SuggestedActions []string `json:"suggestedActions,omitempty"`
	AwaitingInfo     []string `json:"awaitingInfo,omitempty"`
	IsContinuation   bool     `json:"isContinuation"`
}

// handleWebhook is the request/response transport: the reply is
// computed synchronously and returned in the HTTP response, so no bus
// round trip is involved.
func (s *Server) handleWebhook(c *gin.Context) {
	if secret := s.cfg.Channels.Webhook.Secret; secret != "" {
		if c.GetHeader("X-Webhook-Secret") != secret {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
	}

	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel := c.Param("channel")
	reply := s.engine.HandleMessage(c.Request.Context(), bus.InboundMessage{
		Channel:        channel,
		ConversationID: fmt.Sprintf("%s:%s", channel, req.ConversationID),
		CustomerID:     req.CustomerID,
		RegionID:       req.RegionID,
		Content:        req.Message,
		Metadata:       req.Metadata,
	})

	awaiting := make([]string, 0, len(reply.AwaitingInfo))
	for _, slot := range reply.AwaitingInfo {
		awaiting = append(awaiting, string(slot))
	}

	c.JSON(http.StatusOK, webhookResponse{
		Reply:            reply.Text,
		Intent:           reply.Intent.String(),
		Confidence:       reply.Confidence,
		RequiresHuman:    reply.RequiresHuman,
		SuggestedActions: reply.SuggestedActions,
		AwaitingInfo:     awaiting,
		IsContinuation:   reply.IsContinuation,
	})
}

type loginRequest struct {
	AgentID string `json:"agentId" binding:"required"`
	Secret  string `json:"secret" binding:"required"`
}

// handleLogin exchanges the shared console secret for an agent token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.cfg.Auth.JWTSecret == "" || req.Secret != s.cfg.Auth.JWTSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	ttl := time.Duration(s.cfg.Auth.TokenTTLMin) * time.Minute
	token, err := GenerateToken(req.AgentID, "agent", s.cfg.Auth.JWTSecret, ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresInMin": s.cfg.Auth.TokenTTLMin})
}

func (s *Server) handleQueue(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queue": s.scheduler.Queue(c.Query("region"))})
}

func (s *Server) handleQueuePosition(c *gin.Context) {
	conversationID := c.Param("conversationId")
	pos := s.scheduler.QueuePosition(conversationID)
	if pos == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation is not waiting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversationId": conversationID, "position": pos})
}

type assignRequest struct {
	AgentID string `json:"agentId" binding:"required"`
}

func (s *Server) handleAssign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.scheduler.Assign(c.Param("conversationId"), req.AgentID)
	switch err {
	case nil:
		c.JSON(http.StatusOK, gin.H{"status": string(handoff.StatusAssigned)})
	case handoff.ErrUnknownConversation:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case handoff.ErrInvalidTransition:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleClose(c *gin.Context) {
	err := s.scheduler.Close(c.Param("conversationId"))
	switch err {
	case nil:
		c.JSON(http.StatusOK, gin.H{"status": string(handoff.StatusClosed)})
	case handoff.ErrUnknownConversation:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case handoff.ErrInvalidTransition:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// handleSweep triggers the off-hours promotion sweep on demand,
// independent of the cron schedule.
func (s *Server) handleSweep(c *gin.Context) {
	report := s.scheduler.Sweep(c.Request.Context())
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ready": true})
}
