package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Chain is the middleware stack the server installs, outermost first. sentrygin
// re-panics after reporting so RecoveryMiddleware still answers with a 500.
func Chain() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		RecoveryMiddleware(),
		RequestLogger(),
		sentrygin.New(sentrygin.Options{Repanic: true}),
	}
}

// RecoveryMiddleware catches panics and prevents the server from crashing
func RecoveryMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				// Log the panic and stack trace
				zap.L().Error("Panic recovered",
					zap.Any("panic", r),
					zap.String("path", ctx.FullPath()),
					zap.String("stack", string(debug.Stack())))
				sentry.CurrentHub().Recover(r)
				ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error. Please try again later.",
				})
			}
		}()
		// Continue to the next handler
		ctx.Next()
	}
}

// RequestLogger writes one structured line per request.
func RequestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		fields := []zap.Field{
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if symbol := ctx.Param("symbol"); symbol != "" {
			fields = append(fields, zap.String("symbol", symbol))
		}
		switch {
		case ctx.Writer.Status() >= http.StatusInternalServerError:
			zap.L().Error("Request failed", fields...)
		case ctx.Writer.Status() >= http.StatusBadRequest:
			zap.L().Warn("Request rejected", fields...)
		default:
			zap.L().Info("Request served", fields...)
		}
	}
}
