package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"farmops/internal/application"
	"farmops/internal/catalog"
	"farmops/internal/media"
	"farmops/internal/recipe"
	"farmops/internal/stock"
	"farmops/pkg/middleware"
)

// Handlers groups the HTTP handlers wired into the router.
type Handlers struct {
	Catalog     *catalog.Handler
	Stock       *stock.Handler
	Application *application.Handler
	Recipe      *recipe.Handler
	Media       *media.Handler
}

// New wires the Gin engine with required routes and middlewares.
func New(handlers Handlers, limiter *middleware.RateLimiter, jwtSecret string, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(jwtSecret))
	if limiter != nil {
		api.Use(limiter.Limit())
	}

	// Catalog
	api.POST("/products", handlers.Catalog.CreateProduct)
	api.GET("/products", handlers.Catalog.ListProducts)
	api.GET("/products/:id", handlers.Catalog.GetProduct)
	api.PUT("/products/:id", handlers.Catalog.UpdateProduct)
	api.DELETE("/products/:id", handlers.Catalog.DeleteProduct)

	api.POST("/fields", handlers.Catalog.CreateField)
	api.GET("/fields", handlers.Catalog.ListFields)
	api.GET("/fields/:id", handlers.Catalog.GetField)
	api.PUT("/fields/:id", handlers.Catalog.UpdateField)
	api.DELETE("/fields/:id", handlers.Catalog.DeleteField)

	api.POST("/machineries", handlers.Catalog.CreateMachinery)
	api.GET("/machineries", handlers.Catalog.ListMachineries)
	api.GET("/machineries/:id", handlers.Catalog.GetMachinery)
	api.PUT("/machineries/:id", handlers.Catalog.UpdateMachinery)
	api.DELETE("/machineries/:id", handlers.Catalog.DeleteMachinery)

	// Stock ledger
	api.POST("/stock/entries", handlers.Stock.CreateEntry)
	api.GET("/stock/movements", handlers.Stock.ListMovements)
	api.GET("/stock/balance/:productID", handlers.Stock.GetBalance)
	api.GET("/stock/available/:productID", handlers.Stock.GetAvailable)

	// Applications
	api.POST("/applications", handlers.Application.Create)
	api.GET("/applications", handlers.Application.List)
	api.GET("/applications/:id", handlers.Application.Get)
	api.PUT("/applications/:id", handlers.Application.Update)
	api.DELETE("/applications/:id", handlers.Application.Delete)

	// Practical recipes
	api.POST("/applications/:id/recipes/preview", handlers.Recipe.Preview)
	api.POST("/applications/:id/recipes", handlers.Recipe.Create)
	api.GET("/applications/:id/recipes", handlers.Recipe.ListForApplication)
	api.GET("/recipes/:id", handlers.Recipe.Get)
	api.PUT("/recipes/:id", handlers.Recipe.Update)
	api.DELETE("/recipes/:id", handlers.Recipe.Delete)

	// Attachments
	if handlers.Media != nil {
		api.POST("/applications/:id/attachments", handlers.Media.Upload)
		api.GET("/applications/:id/attachments", handlers.Media.List)
		api.GET("/applications/:id/attachments/:attachmentID/download", handlers.Media.Download)
		api.DELETE("/applications/:id/attachments/:attachmentID", handlers.Media.Delete)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
