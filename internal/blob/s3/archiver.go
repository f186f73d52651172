package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Uploader is the narrow client surface the archiver needs.
type Uploader interface {
	Put(ctx context.Context, key string, data io.Reader, contentType string) error
	PutLarge(ctx context.Context, key string, data io.Reader, contentType string) error
}

// Archiver periodically uploads the record directory to object storage
// and prunes local files past the retention window. Pruning only happens
// for files the current sweep uploaded successfully, so a flaky bucket
// never loses records.
type Archiver struct {
	uploader      Uploader
	dir           string
	interval      time.Duration
	retentionDays int
	logger        *slog.Logger
}

// NewArchiver creates an Archiver over the given local record directory.
// retentionDays <= 0 disables local pruning.
func NewArchiver(uploader Uploader, dir string, interval time.Duration, retentionDays int, logger *slog.Logger) *Archiver {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Archiver{
		uploader:      uploader,
		dir:           dir,
		interval:      interval,
		retentionDays: retentionDays,
		logger:        logger.With("component", "archiver"),
	}
}

// Run sweeps on the configured interval until ctx is cancelled. Sweep
// errors are logged, never fatal; the next tick retries.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.Sweep(ctx); err != nil {
				a.logger.Error("archive sweep failed", "error", err)
			}
		}
	}
}

// Sweep uploads every record file, writes one bundled JSONL snapshot of
// the sweep, and prunes uploaded files older than the retention window.
func (a *Archiver) Sweep(ctx context.Context) error {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return fmt.Errorf("s3blob: read record dir %s: %w", a.dir, err)
	}

	var bundle bytes.Buffer
	var uploaded []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		path := filepath.Join(a.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			a.logger.Error("read record file", "file", name, "error", err)
			continue
		}

		key := "records/" + name
		if err := a.uploader.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
			a.logger.Error("upload record", "file", name, "error", err)
			continue
		}

		bundle.Write(bytes.TrimSpace(data))
		bundle.WriteByte('\n')
		uploaded = append(uploaded, path)
	}

	if len(uploaded) == 0 {
		return nil
	}

	bundleKey := fmt.Sprintf("bundles/%s.jsonl", time.Now().UTC().Format("2006-01-02"))
	if err := a.uploader.PutLarge(ctx, bundleKey, bytes.NewReader(bundle.Bytes()), "application/x-ndjson"); err != nil {
		a.logger.Error("upload bundle", "key", bundleKey, "error", err)
	}

	a.prune(uploaded)
	a.logger.Info("archive sweep complete", "uploaded", len(uploaded))
	return nil
}

// prune removes uploaded local files older than the retention window.
func (a *Archiver) prune(uploaded []string) {
	if a.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -a.retentionDays)

	for _, path := range uploaded {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			a.logger.Error("prune record", "file", filepath.Base(path), "error", err)
		}
	}
}
