package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/buildbuddy/engine/internal/api/types"
	"github.com/buildbuddy/engine/internal/identity"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/google/uuid"
)

// Authenticator verifies bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
}

// Auth validates the Bearer token and binds the user id and token to the
// request context.
func Auth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if len(ah) < len("bearer ") || !strings.EqualFold(ah[:len("bearer ")], "bearer ") {
				writeError(w, r, appErr.AuthRequired())
				return
			}
			token := strings.TrimSpace(ah[len("bearer "):])
			uid, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, r, err)
				return
			}
			ctx := identity.WithToken(identity.WithUserID(r.Context(), uid), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	types.WriteJSON(w, types.StatusOf(err), types.APIResponse{
		Error: types.FromAppError(err),
		Meta:  &types.Meta{RequestID: GetRequestID(r.Context())},
	})
}
