package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/buildbuddy/engine/internal/api/middleware"
	"github.com/buildbuddy/engine/internal/api/types"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/buildbuddy/engine/pkg/logger"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	types.WriteJSON(w, status, types.APIResponse{
		Data: data,
		Meta: &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := types.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("id", middleware.GetRequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	types.WriteJSON(w, status, types.APIResponse{
		Error: types.FromAppError(err),
		Meta:  &types.Meta{RequestID: middleware.GetRequestID(r.Context())},
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return appErr.Wrap(err, appErr.CodeInvalid, "invalid json")
	}
	return nil
}
