package security

import (
	"net/http"
)

// BodyLimit caps request payload size. Quote payloads are small; anything
// beyond the limit is either abuse or a client bug.
type BodyLimit struct {
	Max int64
}

// Middleware rejects oversized requests with HTTP 413 and hard-caps reads
// for requests that do not announce their length.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			http.Error(w, "request entity too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}
