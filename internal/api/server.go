// Package api exposes the Submission API of spec §6: accept an onboarding
// request, report its progress, and accept its cancellation. Those three
// endpoints plus an unauthenticated GET /health.
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

	"binance-trading-bot/config"
	"binance-trading-bot/internal/analysisstore"
	"binance-trading-bot/internal/auth"
	"binance-trading-bot/internal/ledger"
	"binance-trading-bot/internal/planner"
	"binance-trading-bot/internal/recorder"
	"binance-trading-bot/internal/validator"
	"binance-trading-bot/internal/workerpool"
)

// RateLimiter provides simple in-memory rate limiting per endpoint, kept in
// the teacher's exact sliding-window shape.
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{requests: make(map[string][]time.Time), limit: limit, window: window}
}

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

// Server is the onboarding pipeline's HTTP surface.
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      config.ServerConfig
	ledger      *ledger.Ledger
	store       *analysisstore.Store
	validator   *validator.Validator
	planner     *planner.Planner
	pool        *workerpool.Pool
	recorder    *recorder.Recorder
	jwtManager  *auth.JWTManager
	authEnabled bool
	rateLimiter *RateLimiter
}

// NewServer wires the three onboarding endpoints behind CORS, rate
// limiting, and (when enabled) bearer auth, in the teacher's own
// middleware-stacking order.
func NewServer(
	cfg config.ServerConfig,
	authCfg config.AuthConfig,
	l *ledger.Ledger,
	store *analysisstore.Store,
	v *validator.Validator,
	p *planner.Planner,
	pool *workerpool.Pool,
	rec *recorder.Recorder,
	productionMode bool,
) *Server {
	if productionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	} else {
		corsConfig.AllowOrigins = []string{"*"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	router.Use(cors.New(corsConfig))

	var jwtManager *auth.JWTManager
	if authCfg.Enabled {
		jwtManager = auth.NewJWTManager(authCfg.JWTSecret, authCfg.AccessTokenDuration)
	}

	s := &Server{
		router:      router,
		config:      cfg,
		ledger:      l,
		store:       store,
		validator:   v,
		planner:     p,
		pool:        pool,
		recorder:    rec,
		jwtManager:  jwtManager,
		authEnabled: authCfg.Enabled,
		rateLimiter: NewRateLimiter(120, time.Minute),
	}
	s.setupRoutes()
	return s
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": "too many requests to this endpoint, slow down",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	group := s.router.Group("/")
	group.Use(s.rateLimitMiddleware())
	if s.authEnabled {
		group.Use(auth.Middleware(s.jwtManager))
	}

	group.POST("/execution", s.handleSubmitExecution)
	group.GET("/execution/:id", s.handleGetExecution)
	group.POST("/execution/:id/cancel", s.handleCancelExecution)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down within config.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.config.ShutdownTimeout)*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": true, "message": message})
}
