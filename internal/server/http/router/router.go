package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/velostore/ordercore/internal/server/http/handlers"
	"github.com/velostore/ordercore/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.PipelineFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))
	engine.Use(middleware.ActorRole())

	orderHandler := handlers.NewOrderHandler(facade)
	paymentHandler := handlers.NewPaymentHandler(facade)
	discountHandler := handlers.NewDiscountHandler(facade)

	api := engine.Group("/api")

	orders := api.Group("/orders")
	orders.POST("", orderHandler.Create)
	orders.GET("", orderHandler.List)
	orders.GET("/:id", orderHandler.Get)
	orders.GET("/:id/history", orderHandler.History)
	orders.POST("/:id/status", orderHandler.ChangeStatus)
	orders.POST("/:id/cod", paymentHandler.CollectCOD)
	orders.GET("/:id/payment", paymentHandler.Payment)

	payments := api.Group("/payments")
	payments.GET("/return", paymentHandler.Return)
	payments.GET("/ipn", paymentHandler.IPN)

	api.GET("/discounts/eligibility", discountHandler.Eligibility)

	return engine
}
