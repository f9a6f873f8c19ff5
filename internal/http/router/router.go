package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/YushiOMOTE/buddy/internal/http/handler/webhook"
	"github.com/YushiOMOTE/buddy/internal/service"
)

func SetupRoutes(router *gin.Engine, deliveries service.DeliveryService) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	lineHandler := webhook.NewLineWebhookHandler(deliveries)
	WebhookRouter(router.Group("/webhooks"), lineHandler)
}
