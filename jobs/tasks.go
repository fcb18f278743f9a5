// Package jobs hosts background task definitions and the Asynq worker.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExportSweep removes orphaned CSV export artifacts.
	TaskExportSweep = "export:sweep"
)

// ExportSweepPayload configures a sweep run.
type ExportSweepPayload struct {
	// Dir is the export directory to sweep.
	Dir string `json:"dir"`
	// MaxAge is how old an artifact must be before it counts as orphaned.
	MaxAge time.Duration `json:"max_age"`
}

// NewExportSweepTask constructs an Asynq task for an artifact sweep.
func NewExportSweepTask(payload ExportSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportSweep, data), nil
}
