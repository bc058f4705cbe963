package router

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/notification-dispatcher/internal/api/handlers/notification"
)

func New(handler *notification.Handler) *ginext.Engine {
	e := ginext.New()
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	metrics := promhttp.Handler()
	e.GET("/metrics", func(c *ginext.Context) {
		metrics.ServeHTTP(c.Writer, c.Request)
	})

	api := e.Group("/api")
	{
		api.POST("/notifications", handler.Create)
		api.GET("/notifications/:id", handler.Get)
		api.GET("/notifications/:id/status", handler.GetStatus)
		api.POST("/notifications/:id/retry", handler.Retry)
		api.GET("/users/:user_id/notifications", handler.ListByUser)
	}

	return e
}
