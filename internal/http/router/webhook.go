package router

import (
	"github.com/gin-gonic/gin"

	"github.com/YushiOMOTE/buddy/internal/http/handler/webhook"
)

func WebhookRouter(router *gin.RouterGroup, line *webhook.LineWebhookHandler) {
	router.POST("/line", line.HandleEvent)
}
