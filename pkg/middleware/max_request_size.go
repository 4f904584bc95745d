package middleware

import (
	"net/http"

	"studyrooms/pkg/logger"
)

// MaxRequestSize caps request bodies. A declared Content-Length above the limit
// is rejected up front; otherwise the body is wrapped so reads fail past it.
func MaxRequestSize(limit int64, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				log.Warn("Request body too large",
					"request_id", GetRequestID(r.Context()),
					"content_length", r.ContentLength,
					"limit", limit,
					"path", r.URL.Path,
				)
				writeJSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
