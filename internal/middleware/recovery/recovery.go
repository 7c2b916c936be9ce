package recovery

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"dompet/internal/log"
)

// Middleware turns a panic in next into a 500 JSON response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger := log.FromContext(r.Context())
			logger.ErrorContext(r.Context(), "panic recovered",
				log.FieldError, fmt.Sprint(rec),
				"stack", string(debug.Stack()),
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":   "Internal server error",
				"message": fmt.Sprint(rec),
			})
		}()
		next.ServeHTTP(w, r)
	})
}
