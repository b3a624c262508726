package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hisab/hisab-ledger/internal/backup"
	"github.com/hisab/hisab-ledger/internal/shared"
)

// BackupPort is the subset of backup.Service driven by the CLI.
type BackupPort interface {
	ExportAll(ctx context.Context) ([]byte, error)
	ImportAll(ctx context.Context, document []byte) (backup.ImportSummary, error)
	ClearAll(ctx context.Context) error
}

// BackupCLI wraps the backup commands.
type BackupCLI struct {
	service BackupPort
	clock   func() time.Time
}

// NewBackupCLI constructs the helper.
func NewBackupCLI(service BackupPort) *BackupCLI {
	return &BackupCLI{service: service, clock: time.Now}
}

// ExportOptions defines flags for backup export. An empty Out writes the
// document to Stdout; a directory receives a timestamped file.
type ExportOptions struct {
	Out    string
	Stdout io.Writer
	Stderr io.Writer
}

// ImportOptions defines flags for backup import.
type ImportOptions struct {
	In     string
	Stdout io.Writer
	Stderr io.Writer
}

// ClearOptions defines flags for backup clear.
type ClearOptions struct {
	Yes    bool
	Stdout io.Writer
	Stderr io.Writer
}

// ExportCommand writes a backup document and returns the process exit code.
func (c *BackupCLI) ExportCommand(ctx context.Context, opts ExportOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	document, err := c.service.ExportAll(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "backup export: %v\n", err)
		return exitCode(err)
	}
	if opts.Out == "" {
		_, _ = stdout.Write(document)
		_, _ = fmt.Fprintln(stdout)
		return 0
	}
	path := opts.Out
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		path = filepath.Join(path, backup.FileName(c.clock()))
	}
	if err := os.WriteFile(path, document, 0o640); err != nil {
		_, _ = fmt.Fprintf(stderr, "backup export: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", path, len(document))
	return 0
}

// ImportCommand replaces the dataset with the document at opts.In.
func (c *BackupCLI) ImportCommand(ctx context.Context, opts ImportOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	if opts.In == "" {
		_, _ = fmt.Fprintln(stderr, "backup import: -in is required")
		return 2
	}
	document, err := os.ReadFile(opts.In)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "backup import: %v\n", err)
		return 1
	}
	summary, err := c.service.ImportAll(ctx, document)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "backup import: %v\n", err)
		return exitCode(err)
	}
	if err := json.NewEncoder(stdout).Encode(summary); err != nil {
		_, _ = fmt.Fprintf(stderr, "backup import: encode summary: %v\n", err)
		return 1
	}
	return 0
}

// ClearCommand empties the ledger when opts.Yes is set.
func (c *BackupCLI) ClearCommand(ctx context.Context, opts ClearOptions) int {
	stdout, stderr := writers(opts.Stdout, opts.Stderr)
	if !opts.Yes {
		_, _ = fmt.Fprintln(stderr, "backup clear: refusing to delete everything without -yes")
		return 2
	}
	if err := c.service.ClearAll(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "backup clear: %v\n", err)
		return exitCode(err)
	}
	_, _ = fmt.Fprintln(stdout, "ledger cleared")
	return 0
}

func writers(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}

// exitCode maps ledger errors to distinct exit statuses: 3 for a rejected
// document, 4 for a storage failure, 1 otherwise.
func exitCode(err error) int {
	switch {
	case errors.Is(err, shared.ErrFormat):
		return 3
	case errors.Is(err, shared.ErrStorage):
		return 4
	}
	return 1
}
