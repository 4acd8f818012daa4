package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	dir, _ := DefaultDir()
	if s.DB.Path != filepath.Join(dir, "appraise.db") {
		t.Errorf("unexpected db path %q", s.DB.Path)
	}
	if s.Log.Level != "warn" {
		t.Errorf("expected log level warn, got %q", s.Log.Level)
	}
	if s.Normalize.MaxSegmentLength != 2000 {
		t.Errorf("expected max segment length 2000, got %d", s.Normalize.MaxSegmentLength)
	}
	if s.Agenda.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", s.Agenda.Workers)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "appraise.yaml")
	content := "db:\n  path: /tmp/ledger.db\nsecret_key: from-file\nagenda:\n  workers: 2\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("APPRAISE_SECRET_KEY", "from-env-0123456789")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.DB.Path != "/tmp/ledger.db" {
		t.Errorf("expected file db path, got %q", s.DB.Path)
	}
	if s.SecretKey != "from-env-0123456789" {
		t.Errorf("expected env to override secret, got %q", s.SecretKey)
	}
	if s.Agenda.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", s.Agenda.Workers)
	}
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestSettings_Validate(t *testing.T) {
	s := &Settings{DB: DBSettings{Path: "x"}, Normalize: NormalizeSettings{MaxSegmentLength: 1}, Agenda: AgendaSettings{Workers: 0}}
	if err := s.Validate(); err == nil {
		t.Error("expected error for zero workers")
	}
	s.Agenda.Workers = 1
	if err := s.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
