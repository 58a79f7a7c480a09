// Package mapiadmin exposes a mapi.Pool's health and stats over HTTP.
package mapiadmin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mapidb/mapi-go"
)

// statsSnapshot is the JSON body returned by GET /stats.
type statsSnapshot struct {
	Live     int    `json:"live"`
	Dead     int    `json:"dead"`
	Size     int    `json:"size"`
	Failures uint32 `json:"consecutive_failures"`
	Closed   bool   `json:"closed"`
}

// NewServer builds an *http.Server exposing pool's health and stats.
// GET /healthz reports 200 while the pool has at least one live or
// reconnectable slot and is not closed; GET /stats returns a JSON snapshot.
// The caller is responsible for calling ListenAndServe (or Serve) on the
// result and for Shutdown/Close.
func NewServer(addr string, pool *mapi.Pool) *http.Server {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthzHandler(pool)).Methods(http.MethodGet)
	r.HandleFunc("/stats", statsHandler(pool)).Methods(http.MethodGet)

	return &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func healthzHandler(pool *mapi.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := pool.Stats()
		if snap.Closed {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("closed"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func statsHandler(pool *mapi.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := pool.Stats()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(statsSnapshot{
			Live:     snap.Live,
			Dead:     snap.Dead,
			Size:     snap.Size,
			Failures: snap.Failures,
			Closed:   snap.Closed,
		})
	}
}
