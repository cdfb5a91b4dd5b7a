package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/afritix/internal/transport/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	Debug          bool
	RequestTimeout time.Duration
	AllowedOrigins []string
}

type Handlers struct {
	Events        *EventHandler
	Orders        *OrderHandler
	Notifications *NotificationHandler
}

// InitRoutes wires the REST API, metrics and the websocket gateway onto one
// engine. The websocket route sits outside the request timeout.
func InitRoutes(h Handlers, verifier middleware.TokenVerifier, gateway http.Handler, opts Options) *gin.Engine {

	router := gin.New()

	// Middleware. Logger and Metrics wrap the error renderer so they see the
	// final status.
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())
	router.Use(middleware.Recovery(opts.Debug))
	router.Use(middleware.Errors(opts.Debug))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if gateway != nil {
		router.GET("/ws", gin.WrapH(gateway))
	}

	// API routes
	api := router.Group("/api/v1")
	api.Use(middleware.Timeout(opts.RequestTimeout))
	api.Use(middleware.Auth(verifier))
	{
		events := api.Group("/events")
		{
			events.GET("", h.Events.ListEvents)
			events.GET("/:id", h.Events.GetEvent)
		}

		orders := api.Group("/orders")
		{
			orders.POST("", h.Orders.Purchase)
			orders.GET("", h.Orders.ListOrders)
			orders.GET("/:id", h.Orders.GetOrder)
			orders.POST("/:id/cancel", h.Orders.CancelOrder)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", h.Notifications.List)
			notifications.GET("/unread-count", h.Notifications.UnreadCount)
			notifications.PATCH("/:id/read", h.Notifications.MarkAsRead)
			notifications.POST("/read-all", h.Notifications.MarkAllAsRead)
			notifications.GET("/preferences", h.Notifications.GetPreferences)
			notifications.PUT("/preferences", h.Notifications.UpdatePreferences)
			notifications.POST("/push-tokens", h.Notifications.RegisterPushToken)
			notifications.DELETE("/push-tokens/:token", h.Notifications.RemovePushToken)
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(middleware.AdminOnly())
		{
			admin.GET("/events", h.Events.ListEvents)
			admin.GET("/events/:id", h.Events.GetEvent)
			admin.POST("/events", h.Events.CreateEvent)
			admin.PUT("/events/:id", h.Events.UpdateEvent)
			admin.POST("/events/:id/cancel", h.Events.CancelEvent)
			admin.DELETE("/events/:id", h.Events.DeleteEvent)
			admin.POST("/events/:id/ticket-types", h.Events.AddTicketType)
			admin.POST("/events/:id/announcements", h.Events.Announce)
			admin.POST("/ticket-types/:id/quantity", h.Events.IncreaseQuantity)

			admin.POST("/notifications", h.Notifications.Dispatch)
			admin.POST("/notifications/scheduled", h.Notifications.Schedule)
			admin.GET("/notifications/scheduled", h.Notifications.ListScheduled)
			admin.DELETE("/notifications/scheduled/:id", h.Notifications.CancelScheduled)
		}
	}

	return router
}
