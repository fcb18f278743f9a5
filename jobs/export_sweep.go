package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Avi-Nandwani/vercel-backend/internal/users"
)

// ExportSweepJob deletes export artifacts that outlived their request. The
// export handler removes its own artifact on every exit path; the sweeper
// exists for the paths no process can cover, such as a crash between write
// and cleanup.
type ExportSweepJob struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewExportSweepJob constructs the sweeper.
func NewExportSweepJob(logger *slog.Logger) *ExportSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportSweepJob{logger: logger, now: time.Now}
}

// Handle processes TaskExportSweep tasks.
func (j *ExportSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ExportSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Dir == "" || payload.MaxAge <= 0 {
		return asynq.SkipRetry
	}

	removed, err := j.Sweep(payload.Dir, payload.MaxAge)
	if err != nil {
		return err
	}
	if removed > 0 {
		j.logger.Info("export sweep removed orphaned artifacts",
			slog.Int("count", removed), slog.String("dir", payload.Dir))
	}
	return nil
}

// Sweep removes export artifacts in dir older than maxAge and returns how
// many were deleted. Files still inside the age window belong to in-flight
// requests and are left alone.
func (j *ExportSweepJob) Sweep(dir string, maxAge time.Duration) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, users.ExportArtifactPattern))
	if err != nil {
		return 0, err
	}

	cutoff := j.now().Add(-maxAge)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				j.logger.Warn("export sweep stat failed", slog.Any("error", err), slog.String("path", path))
			}
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				j.logger.Warn("export sweep remove failed", slog.Any("error", err), slog.String("path", path))
			}
			continue
		}
		removed++
	}
	return removed, nil
}
