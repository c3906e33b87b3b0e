// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"faq-chatbot/internal/common/config"
	"faq-chatbot/internal/common/database"
	"faq-chatbot/internal/common/logger"
	"faq-chatbot/internal/linebot"
	"faq-chatbot/internal/models"
	"faq-chatbot/internal/orchestrator"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline is the orchestrator surface the HTTP layer depends on.
type Pipeline interface {
	Process(ctx context.Context, req models.ChatRequest) orchestrator.Result
}

// Server is the HTTP boundary: it owns request decoding, status mapping,
// rate limiting and the webhook, and delegates everything else to the pipeline.
type Server struct {
	config   *config.Config
	engine   *gin.Engine
	pipeline Pipeline
	gateway  *linebot.Gateway
	redis    *database.RedisClient
	logger   logger.Logger
	http     *http.Server
}

func New(cfg *config.Config, pipeline Pipeline, gateway *linebot.Gateway, redis *database.RedisClient, log logger.Logger) *Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:   cfg,
		pipeline: pipeline,
		gateway:  gateway,
		redis:    redis,
		logger: log.With(map[string]interface{}{
			"component": "server",
		}),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestLogger())
	engine.Use(s.cors())

	api := engine.Group("/api")
	chatHandlers := []gin.HandlerFunc{s.handleChat}
	if cfg.Server.RateLimit.Enabled && redis != nil {
		// Health stays unthrottled so probes keep working under load.
		chatHandlers = append([]gin.HandlerFunc{s.rateLimit()}, chatHandlers...)
	}
	api.POST("/chat", chatHandlers...)
	api.GET("/health", s.handleHealth)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Line.Enabled && gateway != nil {
		engine.POST("/callback", s.handleCallback)
	}

	s.engine = engine
	return s
}

// Engine exposes the router for httptest-based tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.logger.Info("http server starting", map[string]interface{}{
		"address": s.http.Addr,
	})
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
