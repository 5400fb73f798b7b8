package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

const defaultOrigin = "http://localhost:3000"

// CORS allows the configured frontend origins. frontendURL is a comma separated list.
func CORS(frontendURL string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   ParseOrigins(frontendURL),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
	return c.Handler
}

// ParseOrigins splits and de-duplicates origins, always including the local dev origin
func ParseOrigins(frontendURL string) []string {
	origins := []string{defaultOrigin}
	seen := map[string]bool{defaultOrigin: true}
	for _, o := range strings.Split(frontendURL, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	return origins
}
