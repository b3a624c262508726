package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/hisab/hisab-ledger/internal/backup"
	jobmetrics "github.com/hisab/hisab-ledger/internal/jobs"
)

// Exporter produces a serialized backup document.
type Exporter interface {
	ExportAll(ctx context.Context) ([]byte, error)
}

// AutoBackupSetting reports whether scheduled backups are enabled.
type AutoBackupSetting interface {
	AutoBackup(ctx context.Context) bool
}

// BackupJob writes backup documents to a directory.
type BackupJob struct {
	Exporter Exporter
	Settings AutoBackupSetting
	Dir      string
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewBackupJob initialises the backup handler.
func NewBackupJob(exporter Exporter, settings AutoBackupSetting, dir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *BackupJob {
	return &BackupJob{
		Exporter: exporter,
		Settings: settings,
		Dir:      dir,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskBackupExport tasks.
func (j *BackupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Exporter == nil {
		return errors.New("backup export: handler not configured")
	}
	var payload BackupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("backup export: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	_, err := j.Run(ctx, payload.Force)
	return err
}

// Run performs one backup. It returns the written path, or "" when the run
// was skipped because auto-backup is off.
func (j *BackupJob) Run(ctx context.Context, force bool) (path string, err error) {
	tracker := j.Metrics.Track(TaskBackupExport)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.Bool("force", force))
	if !force && (j.Settings == nil || !j.Settings.AutoBackup(ctx)) {
		j.Metrics.RecordBackup(jobmetrics.BackupSkipped, 0)
		logger.Info("auto-backup disabled, skipping")
		return "", nil
	}

	document, err := j.Exporter.ExportAll(ctx)
	if err != nil {
		logger.Error("export failed", slog.Any("error", err))
		return "", err
	}
	if err := os.MkdirAll(j.Dir, 0o750); err != nil {
		return "", fmt.Errorf("backup export: create dir: %w", err)
	}
	path = filepath.Join(j.Dir, backup.FileName(j.clock()))
	if err := os.WriteFile(path, document, 0o640); err != nil {
		return "", fmt.Errorf("backup export: write %s: %w", path, err)
	}
	j.Metrics.RecordBackup(jobmetrics.BackupWritten, len(document))
	logger.Info("backup written", slog.String("path", path), slog.Int("bytes", len(document)))
	return path, nil
}

func (j *BackupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
