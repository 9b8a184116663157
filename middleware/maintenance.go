package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/models"
	"github.com/sarasithagalagama/methsara-publications-bookstore-sub000/service"
)

// SettingsReader is satisfied by *service.SettingsService.
type SettingsReader interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// Maintenance answers 503 while maintenance mode is on, except for requests
// the policy lets through. If settings cannot be read the request passes.
func Maintenance(settings SettingsReader, tokens TokenParser, policy service.BypassPolicy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := settings.Get(r.Context())
			if err != nil {
				log.Printf("[maintenance] read settings: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if !s.MaintenanceMode || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			var role string
			if raw, ok := bearer(r.Header.Get("Authorization")); ok {
				if claims, err := tokens.ParseToken(raw); err == nil {
					role = claims.Role
				}
			}
			if policy.Allows(r.URL.Path, role) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "300")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{
				"maintenance": true,
				"message":     s.MaintenanceMessage,
			})
		})
	}
}
