package api

import (
	"github.com/gin-gonic/gin"

	"github.com/timmy/cropguard/internal/api/handler"
	"github.com/timmy/cropguard/internal/api/middleware"
	"github.com/timmy/cropguard/internal/classifier"
	"github.com/timmy/cropguard/internal/config"
	"github.com/timmy/cropguard/internal/knowledge"
	"github.com/timmy/cropguard/internal/logger"
	"github.com/timmy/cropguard/internal/metrics"
	"github.com/timmy/cropguard/internal/service"
)

// Dependencies are the constructed components the HTTP layer serves.
type Dependencies struct {
	Prediction *service.PredictionService
	Feedback   *service.FeedbackService
	Analytics  *service.AnalyticsService
	Contact    *service.ContactService
	Registry   *classifier.Registry
	Knowledge  *knowledge.Resolver
	Metrics    *metrics.Metrics // nil disables /metrics
	Logger     *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps *Dependencies, cfg *config.Config) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Warn("Ignoring trusted proxies: %v", err)
		_ = r.SetTrustedProxies(nil)
	}
	maxUpload := cfg.Server.MaxUploadMB << 20
	if maxUpload > 0 {
		r.MaxMultipartMemory = maxUpload
	}

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(cfg.Server.CORS))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	healthHandler := handler.NewHealthHandler(deps.Registry, deps.Knowledge, handler.AppInfo{
		Name:            cfg.App.Name,
		Version:         cfg.App.Version,
		ContactEmail:    cfg.Contact.Email,
		ContactWhatsApp: cfg.Contact.WhatsApp,
	})
	predictionHandler := handler.NewPredictionHandler(deps.Prediction, maxUpload)
	feedbackHandler := handler.NewFeedbackHandler(deps.Feedback)
	analyticsHandler := handler.NewAnalyticsHandler(deps.Analytics)
	contactHandler := handler.NewContactHandler(deps.Contact)

	r.GET("/", healthHandler.Index)
	r.GET("/health", healthHandler.Health)

	r.POST("/predict", predictionHandler.Predict)
	r.POST("/feedback", feedbackHandler.Submit)
	r.POST("/contact", contactHandler.Submit)

	r.GET("/history", analyticsHandler.History)
	r.GET("/analytics", analyticsHandler.Analytics)
	r.GET("/stats", analyticsHandler.Stats)

	if deps.Metrics != nil && cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(deps.Metrics.Handler()))
	}

	return r
}
