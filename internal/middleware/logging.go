package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/catalog-admin/internal/logger"
)

// RequestLogger attaches a child of base carrying the chi request ID and
// path, then logs one line per completed request.  It must run after
// chimw.RequestID.
func RequestLogger(base *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			log := base.With("req_id", chimw.GetReqID(r.Context()), "path", r.URL.Path)
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), log)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []any{
				"method", r.Method,
				"status", status,
				"bytes", ww.BytesWritten(),
				"dur_ms", time.Since(start).Milliseconds(),
			}
			if status >= 500 {
				log.Errorw("request", fields...)
				return
			}
			log.Infow("request", fields...)
		})
	}
}
