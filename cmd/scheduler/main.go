package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/db"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/jobs"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/status"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/pkg/etlservice"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/pkg/notify"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/pkg/scheduler"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to the scheduler YAML config (empty: defaults)")
		runNow     = flag.Bool("run-now", false, "Run the pipeline once at startup")
	)
	flag.Parse()

	cfg := scheduler.DefaultConfig()
	if *configPath != "" {
		loaded, err := scheduler.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	pool, err := db.Connect(db.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	var notifier jobs.Notifier
	if cfg.RedisAddr != "" {
		rn := notify.NewRedisNotifier(cfg.RedisAddr)
		defer rn.Close()
		notifier = rn
	}

	service := etlservice.New(pool, notifier)

	sched := scheduler.NewScheduler(cfg)
	if err := sched.RegisterJob("pipeline", func(ctx context.Context) (models.JobRun, error) {
		runs, err := service.RunPipeline(ctx, nil)
		if len(runs) > 0 {
			return runs[len(runs)-1], err
		}
		return models.JobRun{}, err
	}); err != nil {
		log.Fatalf("Failed to register pipeline job: %v", err)
	}

	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	if *runNow {
		if err := sched.RunJobNow("pipeline"); err != nil {
			log.Printf("Failed to trigger pipeline: %v", err)
		}
	}

	// Job status API for operators and the notification collaborator.
	if cfg.StatusAddr != "" {
		router := status.NewRouter(status.NewService(pool))
		c := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		})

		server := &http.Server{
			Addr:         cfg.StatusAddr,
			Handler:      c.Handler(router),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Printf("Starting status API on %s", cfg.StatusAddr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Status API error: %v", err)
			}
		}()
		defer server.Close()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down")
}
