package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/api/handlers"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/api/middleware"
	"github.com/tech-visionarieshub/evco-dashboard-sub002/internal/service"
)

type Services struct {
	DemandService *service.DemandService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.DemandService != nil {
		demandHandler := handlers.NewDemandHandler(services.DemandService)
		demandGroup := apiGroup.Group("/demand")
		{
			demandGroup.POST("/process", demandHandler.ProcessUpload)
			demandGroup.POST("/forecast/ingest", demandHandler.IngestForecast)
			demandGroup.GET("/analyses", demandHandler.ListAnalyses)
			demandGroup.GET("/analyses/:id", demandHandler.GetAnalysis)
			demandGroup.GET("/analyses/:id/forecasts", demandHandler.ListForecasts)
			demandGroup.GET("/analyses/:id/alerts", demandHandler.ListAlerts)
			demandGroup.GET("/rows", demandHandler.ListRows)
		}
	}

	return router
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
