package router

import (
	"github.com/gin-gonic/gin"

	"github.com/navid-fn/sonar/internal/handler"
)

func registerMarketRoutes(router *gin.RouterGroup, marketHandler *handler.MarketHandler) {
	markets := router.Group("/markets")
	{
		markets.GET("", marketHandler.GetMarkets)
		markets.GET("/:id/book", marketHandler.GetBook)
		markets.GET("/:id/stats", marketHandler.GetStats)
		markets.POST("/:id/watch", marketHandler.Watch)
		markets.DELETE("/:id/watch", marketHandler.Unwatch)
	}
}
