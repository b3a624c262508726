package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBackupExport writes a full ledger backup to the backup directory.
	TaskBackupExport = "backup:export"
)

// BackupPayload configures a backup run. Force bypasses the auto-backup
// preference.
type BackupPayload struct {
	Force bool `json:"force"`
}

// NewBackupTask constructs the asynq task for a backup run.
func NewBackupTask(payload BackupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBackupExport, data), nil
}
