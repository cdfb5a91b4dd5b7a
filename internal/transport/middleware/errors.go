package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every failed REST call.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Message    string `json:"message"`
	Stack      string `json:"stack,omitempty"`
}

// StatusFor maps the domain error kinds to HTTP status codes.
func StatusFor(err error) int {
	var validation *entity.ValidationError
	switch {
	case errors.As(err, &validation), errors.Is(err, entity.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrInsufficientInventory), errors.Is(err, entity.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Errors renders the last error a handler attached with c.Error. With debug
// set the body carries the error's stack trace.
func Errors(debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		writeError(c, c.Errors.Last().Err, debug)
	}
}

// Recovery turns a panic into a 500 with the standard body.
func Recovery(debug bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithFields(logrus.Fields{
					"path":  c.Request.URL.Path,
					"panic": r,
				}).Error("Recovered from panic")
				writeError(c, fmt.Errorf("panic: %v", r), debug)
				c.Abort()
			}
		}()
		c.Next()
	}
}

func writeError(c *gin.Context, err error, debug bool) {
	status := StatusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError && !debug {
		message = "internal server error"
	}

	body := ErrorResponse{
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       c.Request.URL.Path,
		Message:    message,
	}
	if debug {
		body.Stack = fmt.Sprintf("%+v", err)
	}

	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Request error")
	}
	c.JSON(status, body)
}
