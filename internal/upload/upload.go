package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// planExtensions are the document types the server accepts.
var planExtensions = map[string]bool{".pdf": true, ".txt": true, ".md": true}

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesRejected int
	FilesErrored  int

	WorkoutsCreated int
}

// Uploader walks a directory of plan documents and uploads the ones the
// state database has not seen.
type Uploader struct {
	client *Client
	state  *StateDB
	root   string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. client may be nil in dry-run mode.
func New(client *Client, state *StateDB, root string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		root:   root,
		dryRun: dryRun,
		log:    log,
	}
}

// Run executes the upload pipeline. Per-file failures are counted; only a
// failed health check or a cancelled context stops the run.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	if !u.dryRun {
		if err := u.client.Health(ctx); err != nil {
			return &u.stats, err
		}
	}

	err := filepath.WalkDir(u.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			u.log.Warn("walk failed", "path", path, "error", err)
			u.stats.FilesErrored++
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != u.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !planExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		u.stats.FilesTotal++
		u.processFile(ctx, path)
		return nil
	})
	if err != nil {
		return &u.stats, fmt.Errorf("walking %s: %w", u.root, err)
	}
	return &u.stats, nil
}

// processFile uploads a single document unless it is unchanged since the
// last successful upload.
func (u *Uploader) processFile(ctx context.Context, path string) {
	relPath, _ := filepath.Rel(u.root, path)

	info, err := os.Stat(path)
	if err != nil {
		u.log.Warn("stat failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return
	}

	hash, err := HashFile(path)
	if err != nil {
		u.log.Warn("hash failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return
	}

	uploaded, err := u.state.IsUploaded(ctx, relPath, info.Size(), hash)
	if err != nil {
		u.log.Warn("state check failed", "file", path, "error", err)
		u.stats.FilesErrored++
		return
	}
	if uploaded {
		u.stats.FilesSkipped++
		return
	}

	if u.dryRun {
		u.log.Info("would upload", "file", relPath, "bytes", info.Size())
		u.stats.FilesUploaded++
		return
	}

	result, err := u.client.UploadPlan(ctx, path)
	if errors.Is(err, ErrRejected) {
		// The server read the file and found nothing to store. Remember it
		// so it is only sent again once edited.
		u.log.Warn("upload rejected", "file", relPath, "error", err)
		u.stats.FilesRejected++
		if err := u.state.MarkUploaded(ctx, relPath, info.Size(), hash, 0); err != nil {
			u.log.Warn("state update failed", "file", path, "error", err)
		}
		return
	}
	if err != nil {
		u.log.Warn("upload failed", "file", relPath, "error", err)
		u.stats.FilesErrored++
		return
	}

	u.stats.FilesUploaded++
	u.stats.WorkoutsCreated += result.Result.WorkoutsInserted
	u.log.Info("uploaded", "file", relPath, "workouts", result.Result.WorkoutsInserted)

	if err := u.state.MarkUploaded(ctx, relPath, info.Size(), hash, result.Result.WorkoutsInserted); err != nil {
		u.log.Warn("state update failed", "file", path, "error", err)
	}
}
