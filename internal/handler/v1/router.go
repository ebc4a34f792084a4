package v1

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medisched/medisched/internal/config"
	"github.com/medisched/medisched/internal/service"
	"github.com/medisched/medisched/pkg/metrics"
)

// NewRouter wires the HTTP surface: appointment routes under /api/v1,
// plus health and metrics endpoints.
func NewRouter(cfg *config.Config, svc *service.AppointmentService, log *zap.Logger, collector *metrics.Collector) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestID(),
		RequestLogger(log),
		Metrics(collector),
		cors.New(cors.Config{
			AllowOrigins:  cfg.CORS.AllowedOrigins,
			AllowMethods:  cfg.CORS.AllowedMethods,
			AllowHeaders:  cfg.CORS.AllowedHeaders,
			ExposeHeaders: []string{requestIDHeader},
			MaxAge:        cfg.CORS.MaxAge,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
		})
	})
	router.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	handler := NewAppointmentHandler(svc, cfg.Scheduling)

	appointments := router.Group("/api/v1/appointments")
	{
		appointments.POST("", handler.Create)
		appointments.GET("", handler.List)
		appointments.GET("/upcoming/next-days", handler.Upcoming)
		appointments.GET("/patient/:patient_email", handler.ByPatient)
		appointments.GET("/doctor/:doctor_name", handler.ByDoctor)
		appointments.GET("/:id", handler.Get)
		appointments.PUT("/:id", handler.Update)
		appointments.DELETE("/:id", handler.Cancel)
	}

	return router
}
