package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// SnapshotProvider is the read side of the Manager, kept narrow so handler
// tests can fake it.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (map[string]int64, map[string]summaryAgg, error)
}

// summaryJSON is the wire shape of a summary aggregate.
type summaryJSON struct {
	Count int64 `json:"count"`
	Sum   int64 `json:"sum"`
	Min   int64 `json:"min"`
	Max   int64 `json:"max"`
}

// Handler serves the merged metrics snapshot as JSON:
// {"counters": {name: total}, "summaries": {name: {count,sum,min,max}}}.
// A non-empty token gates the endpoint behind Authorization: Bearer <token>.
func Handler(provider SnapshotProvider, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token != "" && !bearerMatch(r, token) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		counters, summaries, err := provider.Snapshot(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		out := make(map[string]summaryJSON, len(summaries))
		for name, agg := range summaries {
			out[name] = summaryJSON{Count: agg.count, Sum: agg.sum, Min: agg.min, Max: agg.max}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"counters":  counters,
			"summaries": out,
		})
	}
}

func bearerMatch(r *http.Request, token string) bool {
	const scheme = "Bearer "
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, scheme) && auth[len(scheme):] == token
}
