package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/groceryscout/storefront-gateway/pkg/config"
)

// CORS applies the storefront's allowed origin policy. Credentials stay on
// so the session cookie travels with fetch requests from the SPA.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
