package middleware

import (
	"context"
	"net/http"

	"notepad-backend/application/services"
)

// Migrator runs one pass over the legacy keys.
type Migrator interface {
	Migrate(ctx context.Context) services.MigrationReport
}

// MigrateKeys runs the legacy key migration before each request while enabled
// returns true. The migrator logs its own failures, so the request always
// proceeds.
func MigrateKeys(migrator Migrator, enabled func() bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if enabled() {
				migrator.Migrate(r.Context())
			}
			next.ServeHTTP(w, r)
		})
	}
}
