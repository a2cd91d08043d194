package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"videomanager/internal/dispatch"
	"videomanager/internal/filesystem"
	"videomanager/internal/handlers"
	"videomanager/internal/library"
	"videomanager/internal/logging"
	"videomanager/internal/memory"
	"videomanager/internal/middleware"
	"videomanager/internal/startup"
	"videomanager/internal/thumbcache"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	lib, err := library.Open(context.Background(), config.DatabasePath())
	if err != nil {
		startup.LogFatal("Failed to open library index: %v", err)
	}
	defer lib.Close()

	if config.ScanOnStart {
		go func() {
			if _, err := lib.Scan(context.Background(), config.MediaDir); err != nil {
				logging.Error("Library scan failed: %v", err)
			}
		}()
	}

	probe := filesystem.ExistsWithRetry(filesystem.DefaultRetryConfig())
	verifier, err := thumbcache.New(probe, thumbcache.Config{
		Capacity:        config.ThumbCacheCapacity,
		ReclaimInterval: config.ReclaimInterval,
	})
	if err != nil {
		startup.LogFatal("Failed to create thumbnail cache: %v", err)
	}
	defer verifier.Close()

	monitor := memory.NewMonitor(memory.DefaultConfig(), verifier)
	monitor.Start()
	defer monitor.Stop()

	h := handlers.New(lib, verifier, monitor)

	queue, err := dispatch.New(verifier, dispatch.Config{MaxQueue: config.VerifyQueueSize}, h.OnResolved)
	if err != nil {
		startup.LogFatal("Failed to create verification queue: %v", err)
	}
	h.SetQueue(queue)
	queue.Start()

	router := setupRouter(h)
	handler := middleware.Metrics()(router)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv, queue)

	logging.Info("Video manager listening on :%s (startup took %v)", config.Port, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/verify", h.Verify).Methods("POST")
	api.HandleFunc("/visible", h.UpdateVisible).Methods("POST")
	api.HandleFunc("/resolutions", h.GetResolutions).Methods("GET")
	api.HandleFunc("/cache/clear", h.ClearCache).Methods("POST")

	return r
}

func handleShutdown(srv *http.Server, queue *dispatch.Queue) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logging.Info("Received %s, shutting down", sig)

	queue.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	}
}
