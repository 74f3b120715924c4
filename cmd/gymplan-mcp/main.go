package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/gymplan/internal/config"
	"github.com/claude/gymplan/internal/ingest/plan"
	"github.com/claude/gymplan/internal/mcp"
	"github.com/claude/gymplan/internal/storage"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (local mode: read the database directly)")
	remoteURL := flag.String("server", "", "GymPlan server URL (remote mode: read through the REST API)")
	flag.Parse()

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if (*configPath == "") == (*remoteURL == "") {
		fmt.Fprintf(os.Stderr, "Usage: gymplan-mcp -config config.yaml | -server <URL>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var ds mcp.DataSource
	if *remoteURL != "" {
		ds = mcp.NewHTTPClient(*remoteURL)
		log.Info("remote mode", "server", *remoteURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		db, err := storage.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		ds = db
		log.Info("local mode", "database", cfg.Database.Host)
	}

	s := mcp.New(ds, plan.NewParser(), Version, log)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
