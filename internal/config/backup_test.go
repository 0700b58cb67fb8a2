package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// steppedBackupClock makes every backup get a distinct timestamp.
func steppedBackupClock(t *testing.T) {
	t.Helper()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	orig := backupClock
	backupClock = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	t.Cleanup(func() { backupClock = orig })
}

func TestBackupConfig(t *testing.T) {
	steppedBackupClock(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	t.Run("no config exists", func(t *testing.T) {
		backupPath, err := BackupConfig(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if backupPath != "" {
			t.Errorf("expected empty backup path for non-existent config, got %s", backupPath)
		}
	})

	t.Run("backup existing config", func(t *testing.T) {
		content := "version: 1\nsearch:\n  keyword_match: any\n"
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		backupPath, err := BackupConfig(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(backupPath, configPath+BackupSuffix+".") {
			t.Errorf("unexpected backup name %s", backupPath)
		}

		got, err := os.ReadFile(backupPath)
		if err != nil {
			t.Fatalf("failed to read backup: %v", err)
		}
		if string(got) != content {
			t.Errorf("backup content mismatch:\ngot: %s\nwant: %s", got, content)
		}
	})

	t.Run("prunes beyond MaxBackups", func(t *testing.T) {
		var newest string
		for i := 0; i < MaxBackups+2; i++ {
			p, err := BackupConfig(configPath)
			if err != nil {
				t.Fatalf("backup %d: %v", i, err)
			}
			newest = p
		}

		backups, err := ListBackups(configPath)
		if err != nil {
			t.Fatalf("list backups: %v", err)
		}
		if len(backups) != MaxBackups {
			t.Fatalf("expected %d backups, got %d", MaxBackups, len(backups))
		}
		if backups[0] != newest {
			t.Errorf("expected newest backup first, got %s", backups[0])
		}
	})
}

func TestRestoreConfig(t *testing.T) {
	steppedBackupClock(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("version: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	backupPath, err := BackupConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(configPath, []byte("version: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := RestoreConfig(configPath, backupPath); err != nil {
		t.Fatalf("restore: %v", err)
	}

	got, _ := os.ReadFile(configPath)
	if string(got) != "version: 1\n" {
		t.Errorf("restored content = %q", got)
	}

	// The overwritten version was backed up first
	backups, _ := ListBackups(configPath)
	if len(backups) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(backups))
	}
	prev, _ := os.ReadFile(backups[0])
	if string(prev) != "version: 2\n" {
		t.Errorf("pre-restore backup content = %q", prev)
	}
}

func TestRestoreConfig_MissingBackup(t *testing.T) {
	dir := t.TempDir()
	if err := RestoreConfig(filepath.Join(dir, "config.yaml"), filepath.Join(dir, "nope")); err == nil {
		t.Fatal("expected error for missing backup")
	}
}
