package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"resale-api/internal/services"
)

// QuotaMiddleware blocks evaluation requests once the caller's profile has
// used up its plan's monthly allowance. Reads the counters loaded by the
// auth middleware, so it must run after it.
func QuotaMiddleware(usageService services.UsageService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, ok := services.ProfileFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			limit := usageService.LimitFor(profile.Plan)
			stats := usageService.CurrentUsage(profile)

			w.Header().Set("X-Evaluation-Limit", strconv.Itoa(limit))
			w.Header().Set("X-Evaluation-Remaining", strconv.Itoa(stats.Remaining))
			w.Header().Set("X-Evaluation-Reset", strconv.FormatInt(stats.PeriodEnd.Unix(), 10))

			if err := usageService.CheckQuota(profile); err != nil {
				http.Error(w,
					fmt.Sprintf("Monthly evaluation limit reached (%d/month). Upgrade your plan for more.", limit),
					http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
