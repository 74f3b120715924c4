package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/claude/gymplan/internal/config"
	"github.com/claude/gymplan/internal/document"
	"github.com/claude/gymplan/internal/importer"
	"github.com/claude/gymplan/internal/ingest/plan"
	"github.com/claude/gymplan/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	plansPath := flag.String("path", "", "directory of plan documents (required)")
	login := flag.String("user", "local", "login of the user who owns the imported workouts")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *plansPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: gymplan-import -config config.yaml -path /path/to/plans [-user login] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Verify plan directory exists
	info, err := os.Stat(*plansPath)
	if err != nil || !info.IsDir() {
		log.Error("plan path does not exist or is not a directory", "path", *plansPath)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, cfg.Database.Migrations); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	userID, err := db.GetOrCreateUser(ctx, *login, *login)
	if err != nil {
		log.Error("failed to resolve user", "login", *login, "error", err)
		os.Exit(1)
	}

	// Run import
	docs := document.NewRegistry(document.NewPDFText(cfg.Documents.PDFToTextPath, cfg.Documents.UploadDir))
	imp := importer.New(db, docs, plan.NewParser(), log, userID, *dryRun)
	stats, err := imp.Import(ctx, *plansPath)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"workouts_parsed", stats.WorkoutsParsed,
		"workouts_inserted", stats.WorkoutsInserted,
		"workouts_duplicated", stats.WorkoutsDuplicated,
		"exercises_parsed", stats.ExercisesParsed,
	)
}
