package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"streamhub/internal/blob"
	"streamhub/internal/database"
	"streamhub/internal/handlers"
	"streamhub/internal/logging"
	"streamhub/internal/metrics"
	"streamhub/internal/middleware"
	"streamhub/internal/pipeline"
	"streamhub/internal/queue"
	"streamhub/internal/startup"
	"streamhub/internal/transcoder"
	"streamhub/internal/workers"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ctx := context.Background()

	// Initialize metadata database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Blob storage
	store, err := blob.NewStore(config.StorageDir)
	if err != nil {
		startup.LogFatal("Failed to initialize blob storage: %v", err)
	}

	// Job queue
	workerCount := config.QueueWorkers
	if workerCount <= 0 {
		workerCount = workers.ForCPU(0)
	}
	q, err := queue.Open(ctx, config.QueuePath, queue.DefaultRetryPolicy, config.JobTimeout)
	if err != nil {
		startup.LogFatal("Failed to initialize job queue: %v", err)
	}
	startup.LogQueueInit(workerCount, config.JobTimeout)

	// Pipeline
	startup.LogTranscoderInit()
	p := pipeline.New(db, q, store, config.HLSDir)
	p.RegisterHandlers()

	metrics.InitializeMetrics(transcoder.LadderResolutions(p.Ladder()))

	// Start the queue workers once everything is registered
	q.Start(workerCount)

	// Refresh connection metrics periodically
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		for range ticker.C {
			db.UpdateDBMetrics()
		}
	}()

	// Handlers and router
	h := handlers.New(db, store, p, config.HLSDir, config.MaxUploadBytes)
	router := setupRouter(h)

	// Middleware chain: CORS outermost, then logging, then metrics
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogSegments = config.LogSegments
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	var handler http.Handler = router
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	handler = middleware.Logger(loggingConfig)(handler)
	handler = cors.AllowAll().Handler(handler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics server on its own port
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      metricsMux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, q)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health and version
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/livez", h.Livez).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")
	r.HandleFunc("/version", h.Version).Methods("GET")

	// Ingest and deletion
	r.HandleFunc("/api/videos", h.CreateVideo).Methods("POST")
	r.HandleFunc("/api/videos/{id}", h.DeleteVideo).Methods("DELETE")

	// Streaming read path
	r.HandleFunc("/video/{id}/master.m3u8", h.GetMasterManifest).Methods("GET")
	r.HandleFunc("/video/{id}/{resolution}/index.m3u8", h.GetManifest).Methods("GET")
	r.HandleFunc("/video/{id}/{resolution}/{segment}", h.GetSegment).Methods("GET")

	// Stored blobs (thumbnails)
	r.PathPrefix("/media/").HandlerFunc(h.GetMedia).Methods("GET")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, q *queue.Queue) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping queue workers")
	if err := q.Stop(ctx); err != nil {
		logging.Warn("Queue shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Queue workers stopped")
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
