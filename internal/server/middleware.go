package server

import (
	"fmt"
	"net/http"

	"github.com/maruel/factsheet/internal/persist"
)

// isMutating returns true for HTTP methods that modify state.
func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

// commitMessages names the snapshot revision written by a mutating request
// after its method and path.
func commitMessages(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isMutating(r.Method) {
			ctx := persist.WithCommitMessage(r.Context(), fmt.Sprintf("%s %s", r.Method, r.URL.Path))
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}
