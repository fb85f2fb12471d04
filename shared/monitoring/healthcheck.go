package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

type HealthServer struct {
	monitor *Monitor
	port    string
	server  *http.Server
}

func NewHealthServer(monitor *Monitor, port string) *HealthServer {
	if port == "" {
		port = "8080"
	}
	h := &HealthServer{
		monitor: monitor,
		port:    port,
	}
	h.server = &http.Server{
		Addr:              ":" + port,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// Handler serves /health, /status and /forecast
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.healthHandler)
	mux.HandleFunc("/status", h.statusHandler)
	mux.HandleFunc("/forecast", h.forecastHandler)
	return mux
}

// Start serves in the background until ctx is cancelled
func (h *HealthServer) Start(ctx context.Context) {
	log.Printf("Health check server starting on port %s", h.port)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Health server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Health server shutdown error: %v", err)
		}
	}()
}

func (h *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if h.monitor.IsHealthy() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK - %s", h.monitor.GetStatusSummary())
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Service unhealthy - %s", h.monitor.GetStatusSummary())
	}
}

func (h *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s", h.monitor.GetStatusSummary())
}

func (h *HealthServer) forecastHandler(w http.ResponseWriter, r *http.Request) {
	report := h.monitor.LastReport()
	if report == nil {
		http.Error(w, "no forecast computed yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		log.Printf("Failed to encode forecast: %v", err)
	}
}
