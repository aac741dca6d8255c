package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"perfect-slate/logging"
)

const (
	backupPrefix     = "backup_"
	backupTimeLayout = "2006-01-02_15-04-05"
	backupMetadata   = "metadata.json"
)

// DefaultBackupCollections is everything needed to rebuild contests, slates and wallets.
// counters holds the ID sequences and must travel with the data.
var DefaultBackupCollections = []string{"users", "profiles", "contests", "games", "picks", "slates", "counters"}

// BackupStore exports and restores whole collections as line-delimited documents
type BackupStore interface {
	ExportCollection(ctx context.Context, name string, w io.Writer) (int, error)
	RestoreCollection(ctx context.Context, name string, r io.Reader) (int, error)
}

// BackupConfig configures where backups go and how long they are kept
type BackupConfig struct {
	Dir           string
	Collections   []string
	RetentionDays int
}

// BackupSummary describes one backup run
type BackupSummary struct {
	Path      string         `json:"path"`
	CreatedAt time.Time      `json:"createdAt"`
	Documents map[string]int `json:"documents"`
	Removed   int            `json:"removed"`
}

// BackupInfo describes a backup on disk
type BackupInfo struct {
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	Size        int64     `json:"size"`
	Collections []string  `json:"collections"`
}

type backupManifest struct {
	CreatedAt   time.Time      `json:"created_at"`
	Collections []string       `json:"collections"`
	Documents   map[string]int `json:"documents"`
}

// BackupService snapshots collections into timestamped directories and prunes old ones
type BackupService struct {
	store         BackupStore
	dir           string
	collections   []string
	retentionDays int
	now           func() time.Time
	logger        *logging.Logger
}

func NewBackupService(store BackupStore, config BackupConfig) *BackupService {
	collections := config.Collections
	if len(collections) == 0 {
		collections = DefaultBackupCollections
	}
	return &BackupService{
		store:         store,
		dir:           config.Dir,
		collections:   collections,
		retentionDays: config.RetentionDays,
		now:           time.Now,
		logger:        logging.WithPrefix("Backup"),
	}
}

// CreateBackup writes every configured collection and a manifest, then prunes expired backups
func (s *BackupService) CreateBackup(ctx context.Context) (*BackupSummary, error) {
	createdAt := s.now().UTC()
	path := filepath.Join(s.dir, backupPrefix+createdAt.Format(backupTimeLayout))
	s.logger.Infof("Starting backup to %s", path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	summary := &BackupSummary{Path: path, CreatedAt: createdAt, Documents: make(map[string]int)}
	for _, name := range s.collections {
		n, err := s.exportCollection(ctx, name, path)
		if err != nil {
			return nil, fmt.Errorf("failed to back up %s: %w", name, err)
		}
		summary.Documents[name] = n
		s.logger.Debugf("Backed up %d documents from %s", n, name)
	}

	manifest := backupManifest{CreatedAt: createdAt, Collections: s.collections, Documents: summary.Documents}
	if err := writeManifest(filepath.Join(path, backupMetadata), manifest); err != nil {
		return nil, fmt.Errorf("failed to write backup manifest: %w", err)
	}

	removed, err := s.CleanupOldBackups()
	if err != nil {
		s.logger.Warnf("Backup cleanup failed: %v", err)
	}
	summary.Removed = removed

	s.logger.Infof("Backup completed at %s (%d collections)", path, len(s.collections))
	return summary, nil
}

func (s *BackupService) exportCollection(ctx context.Context, name, path string) (int, error) {
	file, err := os.Create(filepath.Join(path, name+".jsonl"))
	if err != nil {
		return 0, err
	}
	n, err := s.store.ExportCollection(ctx, name, file)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

func writeManifest(path string, manifest backupManifest) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// RestoreBackup upserts every collection listed in a backup's manifest.
// name is the backup directory name, e.g. backup_2026-06-01_04-00-00.
func (s *BackupService) RestoreBackup(ctx context.Context, name string) (map[string]int, error) {
	if !isBackupDir(name) {
		return nil, fmt.Errorf("%q is not a backup name", name)
	}
	path := filepath.Join(s.dir, name)

	manifest, err := readManifest(filepath.Join(path, backupMetadata))
	if err != nil {
		return nil, fmt.Errorf("failed to read backup manifest: %w", err)
	}
	s.logger.Infof("Restoring backup taken %s", manifest.CreatedAt.Format(time.RFC3339))

	restored := make(map[string]int, len(manifest.Collections))
	for _, collection := range manifest.Collections {
		file, err := os.Open(filepath.Join(path, collection+".jsonl"))
		if err != nil {
			return restored, fmt.Errorf("failed to open %s backup: %w", collection, err)
		}
		n, err := s.store.RestoreCollection(ctx, collection, file)
		file.Close()
		if err != nil {
			return restored, fmt.Errorf("failed to restore %s: %w", collection, err)
		}
		restored[collection] = n
		s.logger.Infof("Restored %d documents to %s", n, collection)
	}
	return restored, nil
}

func readManifest(path string) (*backupManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var manifest backupManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// CleanupOldBackups removes backups older than the retention window, judged by
// the timestamp in their name. Zero retention keeps everything.
func (s *BackupService) CleanupOldBackups() (int, error) {
	if s.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().AddDate(0, 0, -s.retentionDays)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read backup directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		takenAt, ok := backupTime(entry.Name())
		if !ok || !takenAt.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
			s.logger.Warnf("Failed to remove old backup %s: %v", entry.Name(), err)
			continue
		}
		s.logger.Infof("Removed old backup %s", entry.Name())
		removed++
	}
	return removed, nil
}

// ListBackups returns the backups on disk, newest first
func (s *BackupService) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		takenAt, ok := backupTime(entry.Name())
		if !entry.IsDir() || !ok {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		info := BackupInfo{Name: entry.Name(), CreatedAt: takenAt, Size: dirSize(path)}
		if manifest, err := readManifest(filepath.Join(path, backupMetadata)); err == nil {
			info.Collections = manifest.Collections
		}
		backups = append(backups, info)
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].CreatedAt.After(backups[j].CreatedAt) })
	return backups, nil
}

func dirSize(path string) int64 {
	var total int64
	filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func backupTime(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, backupPrefix) {
		return time.Time{}, false
	}
	t, err := time.Parse(backupTimeLayout, strings.TrimPrefix(name, backupPrefix))
	return t, err == nil
}

func isBackupDir(name string) bool {
	_, ok := backupTime(name)
	return ok && filepath.Base(name) == name
}
