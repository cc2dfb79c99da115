package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mxlvintam/cohortx/app/query/types"
	"github.com/mxlvintam/cohortx/pkg/metrics"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(withMetrics)

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods("GET")

	r.HandleFunc("/reports/segments", c.HandleSegments).Methods("GET")
	r.HandleFunc("/reports/cohorts", c.HandleCohorts).Methods("GET")
	r.HandleFunc("/reports/retention", c.HandleRetention).Methods("GET")
	r.HandleFunc("/runs", c.HandleRuns).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r, nil
}

// dataResponse is the envelope every report endpoint answers with.
type dataResponse[T any] struct {
	Data []T `json:"data"`
}

// WithCORS is a middleware that adds CORS headers to the response.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Development: Echo back the origin to allow credentials with any origin
		// TODO: Restrict this in production to specific domains
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withMetrics records request counts and latencies per route template.
func withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	buf, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, buf)
}

func writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// cached returns the cached response payload for key, counting hits and
// misses. Always a miss when Redis is disabled.
func (c *Controller) cached(r *http.Request, key string) ([]byte, bool) {
	if c.App.RedisClient == nil {
		return nil, false
	}
	payload, ok := c.App.RedisClient.GetCached(r.Context(), key)
	if ok {
		metrics.CacheHitsTotal.Inc()
	} else {
		metrics.CacheMissesTotal.Inc()
	}
	return payload, ok
}

// respond encodes payload, stores it in the cache under key, and writes it.
func (c *Controller) respond(w http.ResponseWriter, r *http.Request, key string, payload any) {
	buf, err := json.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding failed")
		return
	}
	if c.App.RedisClient != nil {
		c.App.RedisClient.SetCached(r.Context(), key, buf, c.App.CacheTTL)
	}
	writeRaw(w, http.StatusOK, buf)
}
