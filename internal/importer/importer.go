package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/claude/gymplan/internal/document"
	"github.com/claude/gymplan/internal/ingest"
	"github.com/claude/gymplan/internal/ingest/plan"
	"github.com/claude/gymplan/internal/storage"
)

// Store is what the importer writes to. *storage.DB satisfies it.
type Store interface {
	plan.Store
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
}

var _ Store = (*storage.DB)(nil)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	WorkoutsParsed     int
	WorkoutsInserted   int
	WorkoutsDuplicated int
	ExercisesParsed    int
}

// Importer reads plan documents from a directory tree and stores the
// workouts parsed from them.
type Importer struct {
	db       Store
	docs     *document.Registry
	parser   *plan.Parser
	provider *plan.Provider
	log      *slog.Logger
	dryRun   bool
	userID   int
	stats    Stats
}

// New creates a new Importer writing as the given user.
func New(db Store, docs *document.Registry, parser *plan.Parser, log *slog.Logger, userID int, dryRun bool) *Importer {
	return &Importer{
		db:       db,
		docs:     docs,
		parser:   parser,
		provider: plan.NewProvider(db, parser, log),
		log:      log,
		dryRun:   dryRun,
		userID:   userID,
	}
}

// Import processes every supported document under dir. Files that cannot be
// read or decoded are counted and skipped; a storage failure stops the run.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			imp.log.Warn("walk failed", "path", path, "error", err)
			imp.stats.FilesErrored++
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !imp.docs.Supported(d.Name()) {
			return nil
		}
		return imp.importFile(ctx, path)
	})
	return &imp.stats, err
}

// importFile extracts, parses and stores one document.
func (imp *Importer) importFile(ctx context.Context, path string) error {
	start := time.Now()
	name := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		imp.log.Warn("read failed", "file", path, "error", err)
		imp.stats.FilesErrored++
		return nil
	}

	text, err := imp.docs.Extract(ctx, name, "", data)
	switch {
	case errors.Is(err, document.ErrEmptyDocument):
		imp.log.Info("skipping empty document", "file", path)
		imp.stats.FilesSkipped++
		return nil
	case err != nil:
		imp.log.Warn("extract failed", "file", path, "error", err)
		imp.stats.FilesErrored++
		return nil
	}

	if imp.dryRun {
		workouts := imp.parser.Parse(text, name)
		if len(workouts) == 0 {
			imp.stats.FilesSkipped++
			return nil
		}
		imp.stats.FilesProcessed++
		imp.stats.WorkoutsParsed += len(workouts)
		imp.stats.WorkoutsInserted += len(workouts)
		for _, w := range workouts {
			imp.stats.ExercisesParsed += len(w.Exercises)
		}
		return nil
	}

	workouts, result, err := imp.provider.Ingest(ctx, name, text, imp.userID)
	if err != nil {
		imp.logImport(name, result, storage.ImportStatusError, err, start)
		return fmt.Errorf("importing %s: %w", path, err)
	}
	if len(workouts) == 0 {
		imp.logImport(name, result, storage.ImportStatusEmpty, nil, start)
		imp.stats.FilesSkipped++
		return nil
	}

	imp.logImport(name, result, storage.ImportStatusSuccess, nil, start)
	imp.stats.FilesProcessed++
	imp.stats.WorkoutsParsed += result.WorkoutsReceived
	imp.stats.WorkoutsInserted += result.WorkoutsInserted
	imp.stats.WorkoutsDuplicated += result.WorkoutsReceived - result.WorkoutsInserted
	imp.stats.ExercisesParsed += result.ExercisesReceived
	return nil
}

func (imp *Importer) logImport(fileName string, result *ingest.Result, status string, importErr error, start time.Time) {
	var errMsg *string
	if importErr != nil {
		msg := importErr.Error()
		errMsg = &msg
	}
	durationMs := int(time.Since(start).Milliseconds())

	entry := storage.ImportLog{
		UserID:            imp.userID,
		Source:            "import",
		Status:            status,
		FileName:          &fileName,
		WorkoutsReceived:  result.WorkoutsReceived,
		WorkoutsInserted:  result.WorkoutsInserted,
		ExercisesReceived: result.ExercisesReceived,
		DurationMs:        &durationMs,
		ErrorMessage:      errMsg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := imp.db.InsertImportLog(ctx, entry); err != nil {
		imp.log.Error("failed to log import", "file", fileName, "error", err)
	}
}
