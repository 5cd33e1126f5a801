// Package api exposes the engine's HTTP control surface: status, market
// conditions, positions, trade history, and a websocket event stream.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/auth"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/condition"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/database"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/events"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/risk"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// RateLimiter provides simple in-memory rate limiting per client
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// EngineAPI is what the decision engine must expose to the API server
type EngineAPI interface {
	Status() map[string]interface{}
	Conditions() map[string]condition.MarketCondition
	OpenPositions() []trade.Position
	RiskSnapshot() risk.PortfolioSnapshot
	RunCycle(ctx context.Context) (map[string]interface{}, error)
	Pause()
	Resume()
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int
	Host            string
	AllowedOrigins  string
	ProductionMode  bool
	RateLimitPerMin int
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	engine      EngineAPI
	repo        *database.Repository
	eventBus    *events.EventBus
	config      ServerConfig
	jwtManager  *auth.JWTManager
	authEnabled bool
	rateLimiter *RateLimiter
	wsHub       *WSHub
	logger      zerolog.Logger
}

// NewServer creates a new API server. repo may be nil when the trade store
// is disabled; jwtManager may be nil when auth is disabled.
func NewServer(
	config ServerConfig,
	engine EngineAPI,
	repo *database.Repository,
	eventBus *events.EventBus,
	jwtManager *auth.JWTManager,
	logger zerolog.Logger,
) *Server {
	if config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if config.AllowedOrigins == "" || config.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(config.AllowedOrigins, ",")
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	limit := config.RateLimitPerMin
	if limit <= 0 {
		limit = 120
	}

	server := &Server{
		router:      router,
		engine:      engine,
		repo:        repo,
		eventBus:    eventBus,
		config:      config,
		jwtManager:  jwtManager,
		authEnabled: jwtManager != nil,
		rateLimiter: NewRateLimiter(limit, time.Minute),
		wsHub:       NewWSHub(logger),
		logger:      logger.With().Str("component", "api").Logger(),
	}

	server.setupRoutes()

	// Forward every engine event to connected websocket clients
	eventBus.SubscribeAll(server.wsHub.BroadcastEvent)

	return server
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())

	if s.authEnabled {
		api.Use(auth.Middleware(s.jwtManager))
	}

	api.GET("/status", s.handleStatus)
	api.GET("/conditions", s.handleConditions)
	api.GET("/positions", s.handlePositions)
	api.GET("/portfolio", s.handlePortfolio)
	api.GET("/trades", s.handleTrades)

	control := api.Group("/control")
	if s.authEnabled {
		control.Use(auth.RequireAdmin())
	}
	control.POST("/run-cycle", s.handleRunCycle)
	control.POST("/pause", s.handlePause)
	control.POST("/resume", s.handleResume)
}

// Start runs the HTTP server until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	go s.wsHub.Run(ctx)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("API server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the gin router for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}
