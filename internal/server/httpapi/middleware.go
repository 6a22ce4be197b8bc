package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/server/auth"
)

type ctxKey string

const requesterIDKey ctxKey = "requesterID"

// requesterMiddleware resolves the bearer token, if any, into a requester id.
// Requests without a token continue as anonymous; a bad token is rejected.
func (s *HTTPServer) requesterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requesterID, err := auth.RequesterFromHeader(r.Header.Get(common.AuthorizationHeaderName), s.jwtSecret)
		if err != nil {
			s.logger.Debug(r.Context(), "rejected bearer token", "path", r.URL.Path)
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), requesterIDKey, requesterID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requesterID(ctx context.Context) string {
	id, _ := ctx.Value(requesterIDKey).(string)
	return id
}
