package pkg

import (
	"context"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"SchoolNotify/internal/config"
	"SchoolNotify/internal/grades"
	"SchoolNotify/internal/notification"
	"SchoolNotify/internal/parentgrade"
	"SchoolNotify/internal/user"
	"SchoolNotify/pkg/middleware"
)

// CustomValidator adapts validator/v10 to echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

var EchoModules = fx.Module("echo",
	fx.Provide(NewEchoServer),
	fx.Provide(config.New),
	fx.Provide(config.NewLogger),
	fx.Provide(config.NewMongoDatabase),
	fx.Provide(config.NewEmailService),
	fx.Provide(config.NewTTSService),
	fx.Provide(user.NewRepository),
	fx.Provide(user.NewHandler),
	fx.Provide(grades.NewClient),

	fx.Provide(func(r *user.Repository) notification.UserDirectory { return r }),
	fx.Provide(func(db *mongo.Database) notification.HistoryStore { return notification.NewHistoryRepository(db) }),
	fx.Provide(func(db *mongo.Database) notification.AnalyticsStore { return notification.NewAnalyticsRepository(db) }),
	fx.Provide(func(db *mongo.Database) notification.TemplateStore { return notification.NewTemplateRepository(db) }),
	fx.Provide(func(db *mongo.Database) notification.SubscriptionStore { return notification.NewSubscriptionRepository(db) }),
	fx.Provide(func(db *mongo.Database) notification.BatchStore { return notification.NewBatchRepository(db) }),
	fx.Provide(func(db *mongo.Database) notification.ScheduledStore { return notification.NewScheduledRepository(db) }),

	fx.Provide(notification.NewBus),
	fx.Provide(notification.NewTemplateEngine),
	fx.Provide(notification.NewAnalyticsHandler),
	fx.Provide(func(store notification.HistoryStore, cfg *config.Config, logger *zap.Logger) *notification.HistoryHandler {
		return notification.NewHistoryHandler(store, cfg.HistoryMax, logger)
	}),
	fx.Provide(func(subs notification.SubscriptionStore, cfg *config.Config, logger *zap.Logger) (*notification.PushHandler, error) {
		return notification.NewPushHandler(subs, cfg.VAPIDPublicKey, logger)
	}),
	fx.Provide(func(mail *config.EmailService, logger *zap.Logger) *notification.EmailHandler {
		return notification.NewEmailHandler(mail, logger)
	}),
	fx.Provide(func(tts *config.TTSService, logger *zap.Logger) *notification.VoiceHandler {
		return notification.NewVoiceHandler(tts, logger)
	}),
	fx.Provide(notification.NewManager),
	fx.Provide(notification.NewService),
	fx.Provide(func(service *notification.Service, cfg *config.Config, logger *zap.Logger) *notification.Scheduler {
		return notification.NewScheduler(service, cfg.QueueSweepInterval, logger)
	}),
	fx.Provide(notification.NewHandler),

	fx.Provide(func(db *mongo.Database) parentgrade.SettingsStore { return parentgrade.NewSettingsRepository(db) }),
	fx.Provide(func(db *mongo.Database) parentgrade.QueueStore { return parentgrade.NewQueueRepository(db) }),
	fx.Provide(func(db *mongo.Database) parentgrade.OCRQueueStore { return parentgrade.NewOCRQueueRepository(db) }),
	fx.Provide(func(c *grades.Client) parentgrade.GradesAPI { return c }),
	fx.Provide(func(m *notification.Manager) parentgrade.Dispatcher { return m }),
	fx.Provide(parentgrade.NewService),
	fx.Provide(parentgrade.NewScheduler),
	fx.Provide(parentgrade.NewHandler),

	fx.Invoke(func(lc fx.Lifecycle, m *notification.Manager) {
		lc.Append(fx.Hook{OnStart: m.Init})
	}),
	fx.Invoke(func(lc fx.Lifecycle, s *notification.Scheduler) { s.Start(lc) }),
	fx.Invoke(func(lc fx.Lifecycle, s *parentgrade.Scheduler) { s.Start(lc) }),
	fx.Invoke(RegisterRoutes))

func NewEchoServer(lc fx.Lifecycle, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"http://localhost:5173"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	port := ":" + cfg.Port
	log.Println("Server running on http://localhost" + port[1:])
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(port); err != nil && err != http.ErrServerClosed {
					log.Fatal("Failed to start the server:", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("shutting down the server ...")
			return e.Shutdown(ctx)
		},
	})
	return e
}

func RegisterRoutes(e *echo.Echo, nh *notification.Handler, ph *parentgrade.Handler, uh *user.Handler) {
	api := e.Group("/api")
	api.Use(middleware.JWTMiddleware)
	api.Use(middleware.CasbinMiddleware)

	api.POST("/notifications", nh.Send)
	api.POST("/notifications/schedule", nh.Schedule)
	api.GET("/notifications/scheduled", nh.ListScheduled)
	api.DELETE("/notifications/scheduled/:id", nh.DeleteScheduled)
	api.POST("/notifications/batch", nh.SendBatch)
	api.POST("/notifications/:id/:action", nh.RecordAction)

	api.GET("/notifications/history", nh.History)
	api.POST("/notifications/history/:id/read", nh.MarkRead)
	api.DELETE("/notifications/history/:id", nh.DeleteHistory)
	api.DELETE("/notifications/history", nh.ClearHistory)

	api.GET("/analytics", nh.AnalyticsSummary)
	api.GET("/analytics/:id", nh.AnalyticsByID)

	api.GET("/templates", nh.Templates)
	api.PUT("/templates", nh.SaveTemplate)
	api.DELETE("/templates/:id", nh.DeleteTemplate)

	api.GET("/push/key", nh.PushKey)
	api.POST("/push/subscribe", nh.SubscribePush)
	api.DELETE("/push/subscribe", nh.UnsubscribePush)
	api.PUT("/push/permission", nh.SetPushPermission)

	api.GET("/users/preferences", uh.GetPreferences)
	api.PUT("/users/preferences", uh.UpdatePreferences)

	api.GET("/parent/settings", ph.GetSettings)
	api.PUT("/parent/settings", ph.UpdateSettings)
	api.DELETE("/parent/queue", ph.ClearQueue)

	api.POST("/grades/updates", ph.IngestGradeUpdate)
	api.POST("/ocr/results", ph.IngestOCRResult)
}
