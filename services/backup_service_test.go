package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// lineStore keeps each collection as a list of document lines
type lineStore struct {
	mu       sync.Mutex
	data     map[string][]string
	restored map[string][]string
}

func newLineStore() *lineStore {
	return &lineStore{data: map[string][]string{}, restored: map[string][]string{}}
}

func (s *lineStore) ExportCollection(ctx context.Context, name string, w io.Writer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.data[name] {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return 0, err
		}
	}
	return len(s.data[name]), nil
}

func (s *lineStore) RestoreCollection(ctx context.Context, name string, r io.Reader) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.restored[name] = append(s.restored[name], scanner.Text())
	}
	return len(s.restored[name]), scanner.Err()
}

func TestBackupAndRestore(t *testing.T) {
	ctx := context.Background()
	store := newLineStore()
	store.data["contests"] = []string{`{"_id":{"$numberLong":"1"}}`, `{"_id":{"$numberLong":"2"}}`}
	store.data["slates"] = []string{`{"_id":{"$numberLong":"7"}}`}

	dir := t.TempDir()
	svc := NewBackupService(store, BackupConfig{Dir: dir, Collections: []string{"contests", "slates"}})
	svc.now = func() time.Time { return testNow }

	summary, err := svc.CreateBackup(ctx)
	if err != nil {
		t.Fatalf("CreateBackup: %v", err)
	}
	if filepath.Base(summary.Path) != "backup_2026-06-01_16-00-00" {
		t.Fatalf("path = %s", summary.Path)
	}
	if summary.Documents["contests"] != 2 || summary.Documents["slates"] != 1 {
		t.Fatalf("documents = %v", summary.Documents)
	}

	backups, err := svc.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 1 || len(backups[0].Collections) != 2 || backups[0].Size == 0 {
		t.Fatalf("backups = %+v", backups)
	}

	restored, err := svc.RestoreBackup(ctx, backups[0].Name)
	if err != nil {
		t.Fatalf("RestoreBackup: %v", err)
	}
	if restored["contests"] != 2 || store.restored["slates"][0] != `{"_id":{"$numberLong":"7"}}` {
		t.Fatalf("restored = %v, %v", restored, store.restored)
	}

	if _, err := svc.RestoreBackup(ctx, "../etc"); err == nil {
		t.Fatal("restored from a path outside the backup directory")
	}
	if _, err := svc.RestoreBackup(ctx, "backup_2020-01-01_00-00-00"); err == nil {
		t.Fatal("restored a backup that does not exist")
	}
}

func TestCleanupOldBackups(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"backup_2026-05-01_04-00-00", // expired
		"backup_2026-05-20_04-00-00", // expired
		"backup_2026-05-30_04-00-00",
		"keep-me",
	} {
		if err := os.Mkdir(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewBackupService(newLineStore(), BackupConfig{Dir: dir, RetentionDays: 7})
	svc.now = func() time.Time { return testNow }

	removed, err := svc.CleanupOldBackups()
	if err != nil {
		t.Fatalf("CleanupOldBackups: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("left %d entries", len(entries))
	}

	svc.retentionDays = 0
	if removed, _ := svc.CleanupOldBackups(); removed != 0 {
		t.Fatalf("zero retention removed %d", removed)
	}
}
