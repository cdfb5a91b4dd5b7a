package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the id the logger assigns to every request. The
// websocket gateway reuses it as the socket id, so a session's access log
// line and its socket log lines share one key.
const RequestIDHeader = "X-Request-ID"

// Logger writes one access line per request. Websocket upgrades are logged
// when the session ends, since the handler blocks for the whole connection.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := uuid.NewString()
		c.Request.Header.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		upgrade := websocket.IsWebSocketUpgrade(c.Request)

		c.Next()

		status := c.Writer.Status()
		entry := logrus.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"route":     c.FullPath(),
			"duration":  time.Since(start),
			"client_ip": c.ClientIP(),
		})
		if userID, ok := c.Get(ctxUserID); ok {
			entry = entry.WithField("user_id", userID)
		}
		if err := c.Errors.Last(); err != nil {
			entry = entry.WithError(err.Err)
		}

		if upgrade {
			entry.WithField("socket_id", id).Info("Websocket session ended")
			return
		}

		entry = entry.WithFields(logrus.Fields{
			"request_id": id,
			"status":     status,
			"user_agent": c.Request.UserAgent(),
		})
		switch {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request processed")
		}
	}
}
