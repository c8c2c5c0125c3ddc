package middleware

import (
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/faceratio/internal/logger"
)

// RequestLogger logs one structured entry per request. Server errors are
// logged at error level.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			opts := []logger.LoggerOptions{
				{Key: "method", Data: r.Method},
				{Key: "path", Data: r.URL.Path},
				{Key: "status", Data: ww.Status()},
				{Key: "bytes", Data: ww.BytesWritten()},
				{Key: "duration", Data: time.Since(start)},
				{Key: "remote", Data: r.RemoteAddr},
				{Key: "request_id", Data: chiMiddleware.GetReqID(r.Context())},
			}
			if ww.Status() >= http.StatusInternalServerError {
				logger.Error("request failed", opts...)
				return
			}
			logger.Info("request", opts...)
		}()
		next.ServeHTTP(ww, r)
	})
}
