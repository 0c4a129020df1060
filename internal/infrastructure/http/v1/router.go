// Package v1 wires the HTTP API surface.
package v1

import (
	"github.com/gin-gonic/gin"

	"gestock/internal/domain/auth"
	"gestock/internal/infrastructure/http/v1/handlers"
	"gestock/internal/infrastructure/http/v1/middleware"
	"gestock/pkg/logger"
)

// RouterConfig groups the handlers and cross-cutting services mounted
// on the engine.
type RouterConfig struct {
	Log        *logger.Logger
	JWTService *auth.JWTService

	Health      *handlers.HealthHandler
	Article     *handlers.ArticleHandler
	Stock       *handlers.StockHandler
	Precommande *handlers.PrecommandeHandler
	Facture     *handlers.FactureHandler
}

// NewRouter builds the Gin engine with the middleware chain and all v1
// routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.Recovery())
	engine.Use(middleware.Trace())
	engine.Use(middleware.Logger(cfg.Log))
	engine.Use(middleware.ErrorHandler())

	engine.GET("/health/live", cfg.Health.Live)
	engine.GET("/health/ready", cfg.Health.Ready)

	api := engine.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTService))
	{
		articles := api.Group("/articles")
		{
			articles.POST("", cfg.Article.Create)
			articles.GET("", cfg.Article.List)
			articles.GET("/:id", cfg.Article.GetByID)
			articles.PUT("/:id", cfg.Article.Update)
		}

		stock := api.Group("/stock")
		{
			stock.POST("/entrees", cfg.Stock.RecordEntry)
			stock.POST("/transferts", cfg.Stock.Transfer)
			stock.GET("/articles/:id", cfg.Stock.LevelsByArticle)
			stock.GET("/locations/:type/:id", cfg.Stock.LevelsByLocation)
			stock.GET("/mouvements", cfg.Stock.MovementsByReference)
		}

		precommandes := api.Group("/precommandes")
		{
			precommandes.POST("", cfg.Precommande.Create)
			precommandes.GET("", cfg.Precommande.List)
			precommandes.GET("/:id", cfg.Precommande.GetByID)
			precommandes.PUT("/:id/livraison", cfg.Precommande.ReconcileDelivery)
		}

		factures := api.Group("/factures")
		{
			factures.POST("", cfg.Facture.Create)
			factures.GET("", cfg.Facture.List)
			factures.GET("/:id", cfg.Facture.GetByID)
			factures.POST("/:id/versements", cfg.Facture.RecordPayment)
		}

		api.GET("/versements", cfg.Facture.ListPayments)
	}

	return engine
}
