package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nightgate/nightgate/pkg/apiserver/handlers"
	"github.com/nightgate/nightgate/pkg/apiserver/middleware"
	"github.com/nightgate/nightgate/pkg/auth"
	"github.com/nightgate/nightgate/pkg/config"
	"github.com/nightgate/nightgate/pkg/store"
)

type Server struct {
	router *gin.Engine
	runs   store.RunReader
	events handlers.Subscriber
	tokens *auth.TokenManager
	cfg    *config.Config
	logger *zap.Logger
}

// NewServer builds the run history API. runs and events may be nil, in which
// case their routes answer 503.
func NewServer(runs store.RunReader, events handlers.Subscriber, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		runs:   runs,
		events: events,
		cfg:    cfg,
		logger: logger,
	}
	if cfg.Auth.JWTSecret != "" {
		s.tokens = auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.Use(middleware.Auth(s.tokens))

		runHandler := handlers.NewRunHandler(s.runs, s.logger)
		runs := api.Group("/runs", middleware.RequireScope(auth.ScopeRunsRead))
		runs.GET("", runHandler.List)
		runs.GET("/:id", runHandler.Get)
		runs.GET("/:id/decisions", runHandler.ListDecisions)

		eventHandler := handlers.NewEventHandler(s.events, s.logger)
		api.GET("/events", middleware.RequireScope(auth.ScopeEventsRead), eventHandler.Stream)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
