package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/db"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/jobs"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/status"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/warehouse"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/pkg/etlservice"
	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/pkg/notify"
)

func main() {
	var (
		// Commands
		ingestCmd    = flag.Bool("ingest", false, "Stage the crawl CSV into the raw staging table")
		cleanCmd     = flag.Bool("clean", false, "Clean the raw batch into the clean staging table")
		reconcileCmd = flag.Bool("reconcile", false, "Reconcile the clean batch into the SCD2 price history")
		loadCmd      = flag.Bool("load", false, "Load the clean batch into the star schema")
		pipelineCmd  = flag.Bool("pipeline", false, "Run the full pipeline: ingest, clean, reconcile, load")
		datesCmd     = flag.Bool("preload-dates", false, "Preload dim_date from a calendar CSV")
		statusCmd    = flag.Bool("status", false, "Print the last known status of every job")

		// Options
		dateArg  = flag.String("date", "", "Business day to ingest (YYYY-MM-DD, default: newest crawl)")
		calendar = flag.String("calendar", "", "Path to the calendar CSV for -preload-dates")
		redisArg = flag.String("redis", "", "Redis address for run-status events (empty: disabled)")

		// Database options
		dbHost = flag.String("db-host", "", "Database hostname")
		dbPort = flag.Int("db-port", 0, "Database port")
		dbName = flag.String("db-name", "", "Database name")
		dbUser = flag.String("db-user", "", "Database username")
		dbPass = flag.String("db-pass", "", "Database password")
	)
	flag.Parse()

	dbConfig := db.DefaultConfig()
	if *dbHost != "" {
		dbConfig.Host = *dbHost
	}
	if *dbPort != 0 {
		dbConfig.Port = *dbPort
	}
	if *dbName != "" {
		dbConfig.DBName = *dbName
	}
	if *dbUser != "" {
		dbConfig.User = *dbUser
	}
	if *dbPass != "" {
		dbConfig.Password = *dbPass
	}

	pool, err := db.Connect(dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	var day *time.Time
	if *dateArg != "" {
		parsed, err := time.Parse("2006-01-02", *dateArg)
		if err != nil {
			log.Fatalf("Invalid -date %q, expected YYYY-MM-DD", *dateArg)
		}
		day = &parsed
	}

	var notifier jobs.Notifier
	if *redisArg != "" {
		rn := notify.NewRedisNotifier(*redisArg)
		defer rn.Close()
		notifier = rn
	}

	ctx := context.Background()
	service := etlservice.New(pool, notifier)

	switch {
	case *datesCmd:
		if *calendar == "" {
			log.Fatal("-preload-dates requires -calendar")
		}
		n, err := warehouse.PreloadDateDim(ctx, pool, *calendar)
		if err != nil {
			log.Fatalf("Failed to preload dim_date: %v", err)
		}
		fmt.Printf("Preloaded %d dim_date rows\n", n)

	case *statusCmd:
		states, err := status.NewService(pool).AllJobStates(ctx)
		if err != nil {
			log.Fatalf("Failed to read job status: %v", err)
		}
		if len(states) == 0 {
			fmt.Println("No jobs have run yet")
			return
		}
		for _, st := range states {
			fmt.Printf("%-26s %-9s last run %s\n", st.JobName, st.Status, st.LastRun.Format(time.RFC3339))
		}

	case *pipelineCmd:
		runs, err := service.RunPipeline(ctx, day)
		for _, run := range runs {
			fmt.Printf("%-26s %-9s %s\n", run.JobName, run.Status, run.Message)
		}
		if err != nil {
			os.Exit(1)
		}

	case *ingestCmd:
		exitOnFailure(service.RunIngest(ctx, day))
	case *cleanCmd:
		exitOnFailure(service.RunClean(ctx))
	case *reconcileCmd:
		exitOnFailure(service.RunReconcile(ctx))
	case *loadCmd:
		exitOnFailure(service.RunLoad(ctx))

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func exitOnFailure(run models.JobRun, err error) {
	fmt.Printf("%-26s %-9s %s\n", run.JobName, run.Status, run.Message)
	if err != nil {
		os.Exit(1)
	}
}
