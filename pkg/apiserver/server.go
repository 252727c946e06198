package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/simplifyhr/offerflow/pkg/apiserver/handlers"
	"github.com/simplifyhr/offerflow/pkg/apiserver/middleware"
	"github.com/simplifyhr/offerflow/pkg/auth"
	"github.com/simplifyhr/offerflow/pkg/eventbus"
	"github.com/simplifyhr/offerflow/pkg/screening"
	"github.com/simplifyhr/offerflow/pkg/supervisor"
)

type Server struct {
	router    *gin.Engine
	sup       *supervisor.Supervisor
	screening *screening.Service
	tokens    *auth.TokenManager
	bus       *eventbus.Bus
	logger    *zap.Logger
}

func NewServer(sup *supervisor.Supervisor, screening *screening.Service, tokens *auth.TokenManager, bus *eventbus.Bus, logger *zap.Logger) *Server {
	s := &Server{
		sup:       sup,
		screening: screening,
		tokens:    tokens,
		bus:       bus,
		logger:    logger,
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
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var validator middleware.TokenValidator
	if s.tokens != nil {
		validator = s.tokens
	}
	var events handlers.Subscriber
	if s.bus != nil {
		events = s.bus
	}

	api := r.Group("/api/v1")
	{
		api.Use(middleware.Auth(validator))

		workflowHandler := handlers.NewWorkflowHandler(s.sup, events, s.logger)
		api.POST("/offer-workflows", workflowHandler.Initiate)
		api.GET("/offer-workflows", workflowHandler.List)
		api.GET("/offer-workflows/export", workflowHandler.Export)
		api.GET("/offer-workflows/:id", workflowHandler.Get)
		api.POST("/offer-workflows/:id/advance", workflowHandler.Advance)
		api.POST("/offer-workflows/:id/response", workflowHandler.Respond)
		api.POST("/offer-workflows/:id/offer-draft", workflowHandler.DraftOffer)
		api.GET("/offer-workflows/:id/events", workflowHandler.Events)

		screeningHandler := handlers.NewScreeningHandler(s.screening, s.logger)
		api.POST("/applications/:id/assessment", screeningHandler.AssessApplication)
		api.POST("/jobs/:id/assessments", screeningHandler.AssessJob)
		api.POST("/job-descriptions", screeningHandler.DescribeJob)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
