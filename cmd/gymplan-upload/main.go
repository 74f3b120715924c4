package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/gymplan/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "GymPlan server URL (e.g. https://gymplan.tail1234.ts.net)")
	plansPath := flag.String("path", "", "directory of plan documents (.pdf, .txt, .md)")
	apiKey := flag.String("api-key", os.Getenv("GYMPLAN_AUTH_API_KEY"), "API key for uploads (default $GYMPLAN_AUTH_API_KEY)")
	dryRun := flag.Bool("dry-run", false, "list what would be uploaded without sending")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("gymplan-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *plansPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: gymplan-upload -server <URL> -path <plan dir> [-api-key KEY] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	info, err := os.Stat(*plansPath)
	if err != nil || !info.IsDir() {
		log.Error("plan directory not found", "path", *plansPath)
		os.Exit(1)
	}

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	stateDir := filepath.Join(homeDir, ".gymplan-upload")

	state, err := upload.OpenStateDB(stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	// Create client (nil-safe in dry-run mode)
	var client *upload.Client
	if !*dryRun {
		client = upload.NewClient(*serverURL, *apiKey)
	} else {
		log.Info("DRY RUN mode: files will be listed but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run upload
	uploader := upload.New(client, state, *plansPath, *dryRun, log)
	stats, err := uploader.Run(ctx)
	if err != nil {
		log.Error("upload failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:   %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:    %d (already uploaded)\n", stats.FilesSkipped)
	fmt.Printf("  Files rejected:   %d (no workouts found)\n", stats.FilesRejected)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Workouts created: %d\n", stats.WorkoutsCreated)
	fmt.Println()
}
