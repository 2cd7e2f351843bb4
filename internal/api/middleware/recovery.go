package middleware

import (
	"net/http"
	"runtime/debug"

	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/buildbuddy/engine/pkg/logger"
	"go.uber.org/zap"
)

// Recovery logs panics and answers with an internal error envelope.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.L().Error("panic recovered",
					zap.String("id", GetRequestID(r.Context())),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				writeError(w, r, appErr.New(appErr.CodeInternal, "something went wrong, please try again"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
