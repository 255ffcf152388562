// Package caller resolves the acting account for a request. Authentication
// happens upstream; the gateway forwards the verified account UUID in the
// X-Acting-Account header and this middleware makes it the request caller.
package caller

import (
	"net/http"

	"github.com/google/uuid"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

// Header carries the verified acting account.
const Header = "X-Acting-Account"

// Middleware parses the acting account header into the request context.
// Requests without a parseable account are rejected before reaching any
// handler; read-only routes are mounted outside this middleware.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(Header)
		if raw == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "acting account header is required"))
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnauthorized, "malformed acting account"))
			return
		}
		ctx := requestcontext.WithCaller(r.Context(), domain.AccountID(id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
