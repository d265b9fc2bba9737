// Package backup provides periodic snapshots of the sqlite database with
// tiered retention and integrity verification.
package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config holds snapshot service configuration.
type Config struct {
	// DBPath is the sqlite database file to snapshot.
	DBPath string

	// Dir is the directory snapshots are written to.
	Dir string

	// Interval is the time between snapshots (default: 1h).
	Interval time.Duration

	// Retention controls how many snapshots to keep per age tier.
	Retention RetentionPolicy

	// Verify runs an integrity check on every snapshot (default: true
	// via DefaultConfig).
	Verify bool
}

// RetentionPolicy caps the number of snapshots kept per age tier.
// Snapshots under 24h old count as hourly, under 7d as daily, under 30d
// as weekly, under a year as monthly. Anything older is removed.
type RetentionPolicy struct {
	Hourly  int
	Daily   int
	Weekly  int
	Monthly int
}

// Result describes one completed snapshot.
type Result struct {
	Path     string
	Size     int64
	Duration time.Duration
	Verified bool
}

// Info describes a snapshot on disk.
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Service writes periodic database snapshots.
type Service struct {
	cfg Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	last    time.Time
}

// New validates the configuration and creates a snapshot service. The
// snapshot directory is created if missing.
func New(cfg Config) (*Service, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("backup: database path is required")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup: snapshot directory is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Retention.Hourly == 0 {
		cfg.Retention.Hourly = 24
	}
	if cfg.Retention.Daily == 0 {
		cfg.Retention.Daily = 7
	}
	if cfg.Retention.Weekly == 0 {
		cfg.Retention.Weekly = 4
	}
	if cfg.Retention.Monthly == 0 {
		cfg.Retention.Monthly = 12
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot directory: %w", err)
	}
	return &Service{cfg: cfg, stopCh: make(chan struct{})}, nil
}

// Run takes snapshots at the configured interval until the context is
// cancelled or Stop is called. It blocks; run it in a goroutine.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("backup: already running")
	}
	s.running = true
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	log.Printf("Snapshot service started: interval=%v dir=%s", s.cfg.Interval, s.cfg.Dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			result, err := s.SnapshotNow(ctx)
			if err != nil {
				log.Printf("Snapshot failed: %v", err)
				continue
			}
			log.Printf("Snapshot written: path=%s size=%d duration=%v verified=%v",
				result.Path, result.Size, result.Duration, result.Verified)
		}
	}
}

// Stop halts the snapshot loop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
}

// SnapshotNow takes an immediate snapshot, verifies it when configured,
// and applies the retention policy.
func (s *Service) SnapshotNow(ctx context.Context) (*Result, error) {
	start := time.Now()

	if _, err := os.Stat(s.cfg.DBPath); err != nil {
		return nil, fmt.Errorf("backup: database not found: %w", err)
	}

	// Microsecond precision keeps names unique under rapid snapshots.
	name := fmt.Sprintf("ekko-%s.db", start.Format("20060102-150405.000000"))
	path := filepath.Join(s.cfg.Dir, name)

	if err := snapshotSQLite(s.cfg.DBPath, path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("backup: stat snapshot: %w", err)
	}

	result := &Result{
		Path:     path,
		Size:     info.Size(),
		Duration: time.Since(start),
	}

	if s.cfg.Verify {
		if err := verifySnapshot(path); err != nil {
			return result, fmt.Errorf("backup: verification failed: %w", err)
		}
		result.Verified = true
	}

	s.mu.Lock()
	s.last = start
	s.mu.Unlock()

	// Retention errors never fail the snapshot itself.
	if err := applyRetention(s.cfg.Dir, s.cfg.Retention); err != nil {
		log.Printf("WARNING: retention sweep failed: %v", err)
	}

	return result, nil
}

// List returns all snapshots on disk, newest first.
func (s *Service) List() ([]Info, error) {
	return listSnapshots(s.cfg.Dir)
}

// Restore replaces the database with the given snapshot. The service and
// the application's store must not be in use during a restore. The
// current database is snapshotted first so a failed restore rolls back.
func (s *Service) Restore(ctx context.Context, snapshotPath string) error {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if running {
		return fmt.Errorf("backup: cannot restore while the snapshot loop is running")
	}

	if _, err := os.Stat(snapshotPath); err != nil {
		return fmt.Errorf("backup: snapshot not found: %w", err)
	}

	preRestore := s.cfg.DBPath + ".pre-restore"
	if _, err := os.Stat(s.cfg.DBPath); err == nil {
		if err := snapshotSQLite(s.cfg.DBPath, preRestore); err != nil {
			return fmt.Errorf("backup: pre-restore snapshot: %w", err)
		}
		defer os.Remove(preRestore)
	}

	if err := restoreSQLite(snapshotPath, s.cfg.DBPath); err != nil {
		if _, statErr := os.Stat(preRestore); statErr == nil {
			if rbErr := restoreSQLite(preRestore, s.cfg.DBPath); rbErr != nil {
				return fmt.Errorf("backup: restore failed and rollback failed: %v (restore error: %w)", rbErr, err)
			}
			return fmt.Errorf("backup: restore failed, rolled back: %w", err)
		}
		return err
	}

	log.Printf("Database restored from snapshot: %s", snapshotPath)
	return nil
}
