package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/loja-api/internal/common"
)

// Middleware guards back-office routes.
type Middleware struct {
	Service *Service
}

// RequireAdmin rejects requests without a valid bearer token and stores the
// admin username on the context otherwise.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, err := m.Service.ParseAccessToken(bearerToken(r))
		if err != nil {
			common.WriteError(w, err)
			return
		}
		zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("admin", username)
		})
		next.ServeHTTP(w, r.WithContext(common.WithAdmin(r.Context(), username)))
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
