package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/blaisecz/vitalsim/pkg/problem"
	"go.uber.org/zap"
)

// Recovery recovers from panics and returns a 500 error
func Recovery(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						zap.Any("panic", err),
						zap.ByteString("stack", debug.Stack()))
					problem.InternalError("An unexpected error occurred").Write(w)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
