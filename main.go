// brandcut/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"brandcut/acquire"
	"brandcut/api"
	"brandcut/config"
	"brandcut/pipeline"
	"brandcut/probe"
	"brandcut/publish"
	"brandcut/registry"
	"brandcut/transform"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. The registry is the only cross-request state; the signal handler
	// and the cleanup endpoint both drain it.
	reg := registry.New()

	// 3. Initialize pipeline collaborators (engine availability is checked here)
	transformer, err := transform.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize transformer: %v", err)
	}
	acquirer := acquire.New(nil, cfg.MaxInputSize)
	prober := probe.New(cfg.FFprobeBin, cfg.ProbeTimeout)

	var publisher *publish.Publisher
	var store api.StorageLister
	if cfg.StorageEndpoint != "" {
		publisher, err = publish.New(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize storage client: %v", err)
		}
		verifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		ok, err := publisher.VerifyCredentials(verifyCtx)
		cancel()
		if err != nil || !ok {
			log.Printf("Warning: storage bucket %q not reachable at startup: ok=%v err=%v", cfg.StorageBucket, ok, err)
		}
		store = publisher
	} else {
		log.Println("No object storage configured; only local-only requests will be accepted")
	}

	var pub pipeline.Publisher
	if publisher != nil {
		pub = publisher
	}
	pipe := pipeline.New(reg, acquirer, prober, transformer, pub, cfg.WorkRoot)

	// 4. Set up router and server
	router := api.SetupRouter(pipe, reg, store, cfg)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// 5. Signal-aware context; ReleaseAll must run on SIGINT/SIGTERM even if
	// handlers are mid-request.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Periodic safety net against missed per-request cleanup.
	if cfg.CleanupInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					log.Println("Periodic cleanup sweep")
					reg.ReleaseAll()
				}
			}
		}()
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 6. Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	stop()
	log.Println("Shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Print("Server forced to shutdown: ", err)
	}

	// Reclaim anything abandoned by in-flight requests.
	reg.ReleaseAll()

	log.Println("Server exiting")
}
