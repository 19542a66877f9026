package api

import (
	"net/http"
	"strings"

	"github.com/go-logr/logr"
)

// requireToken rejects requests without a valid bearer token.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="lvnode"`)
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := VerifyToken(s.secret, strings.TrimSpace(token))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="lvnode", error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		log := logr.FromContextOrDiscard(r.Context()).WithValues("subject", claims.Subject)
		next.ServeHTTP(w, r.WithContext(logr.NewContext(r.Context(), log)))
	})
}
