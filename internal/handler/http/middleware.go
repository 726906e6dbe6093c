package http

import (
	"net/http"
	"strings"

	"github.com/DhruvK0/fynspo-mobile-sub000/pkg/httputil"
)

// maxBodyBytes caps request bodies. An item record plus a filter selection is
// far below this.
const maxBodyBytes = 1 << 20

// ContentTypeJSON enforces that requests with a body declare JSON and caps the
// body size.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteProblem(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}
