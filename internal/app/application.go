package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"page-composer-backend/internal/api"
	"page-composer-backend/internal/config"
	"page-composer-backend/internal/handlers"
	"page-composer-backend/internal/metrics"
	"page-composer-backend/internal/middleware"
	"page-composer-backend/internal/session"
	"page-composer-backend/pkg/cache"
	"page-composer-backend/pkg/logger"
)

type Application struct {
	cfg *config.Config

	cache    *cache.Cache
	boundary *api.Client
	sessions *session.Manager

	builderHandler *handlers.BuilderHandler
	eventsHandler  *handlers.EventsHandler

	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &Application{cfg: cfg}

	if err := app.initCache(); err != nil {
		return nil, err
	}
	app.initSessions()
	app.initHandlers()
	app.initRouter()

	if cfg.EnableMetrics {
		metrics.Init()
	}

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
		"boundary":    a.cfg.BoundaryBaseURL,
	})

	return a.server.ListenAndServe()
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	return nil
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initCache() error {
	shared, err := cache.NewCache(a.cfg.RedisURL, a.cfg.EnableRedis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.cache = shared
	return nil
}

func (a *Application) initSessions() {
	a.boundary = api.NewClient(a.cfg.BoundaryBaseURL, a.cfg.BoundaryToken, a.cfg.BoundaryTimeout)
	a.sessions = session.NewManager(a.boundary, session.Options{
		Shared:          a.cache,
		PreviewTTL:      a.cfg.PreviewCacheTTL,
		PreviewTimeout:  a.cfg.PreviewTimeout,
		PreviewDebounce: a.cfg.PreviewDebounce,
		MaxSessions:     a.cfg.MaxSessions,
	})
}

func (a *Application) initHandlers() {
	a.builderHandler = handlers.NewBuilderHandler(a.sessions)
	a.eventsHandler = handlers.NewEventsHandler(a.sessions)
}

func (a *Application) initRouter() {
	if a.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	builder := router.Group("/api/builder")
	builder.Use(middleware.AuthMiddleware(a.cfg.JWTSecret))
	{
		builder.POST("/sessions", a.builderHandler.OpenSession)
		builder.DELETE("/sessions/:id", a.builderHandler.CloseSession)
		builder.GET("/sessions/:id/tree", a.builderHandler.GetTree)
		builder.POST("/sessions/:id/components/update", a.builderHandler.UpdateComponent)
		builder.POST("/sessions/:id/schemas/refresh", a.builderHandler.RefreshSchemas)
		builder.GET("/sessions/:id/previews/:widgetID", a.builderHandler.GetPreview)
		builder.POST("/sessions/:id/browse", a.builderHandler.BrowseItems)
		builder.POST("/sessions/:id/wizard", a.builderHandler.StartWizard)
		builder.POST("/sessions/:id/wizard/widget", a.builderHandler.ChooseWidget)
		builder.POST("/sessions/:id/wizard/content-type", a.builderHandler.ChooseContentType)
		builder.POST("/sessions/:id/wizard/content-type/new", a.builderHandler.CreateContentType)
		builder.POST("/sessions/:id/wizard/items", a.builderHandler.SelectItems)
		builder.POST("/sessions/:id/wizard/items/new", a.builderHandler.CreateItem)
		builder.POST("/sessions/:id/wizard/next", a.builderHandler.WizardNext)
		builder.POST("/sessions/:id/wizard/back", a.builderHandler.WizardBack)
		builder.POST("/sessions/:id/wizard/cancel", a.builderHandler.WizardCancel)
		builder.POST("/sessions/:id/wizard/resume", a.builderHandler.WizardResume)
		builder.GET("/sessions/:id/events", a.eventsHandler.Stream)
	}

	a.router = router
}
