package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Extract.SufficientTextLength != 300 {
		t.Errorf("sufficient_text_length = %d, want 300", cfg.Extract.SufficientTextLength)
	}
	if cfg.Extract.MinTextLength != 100 {
		t.Errorf("min_text_length = %d, want 100", cfg.Extract.MinTextLength)
	}
	if cfg.OCR.Language != "eng" {
		t.Errorf("ocr.language = %q, want eng", cfg.OCR.Language)
	}
	if cfg.OCR.Scale != 1.2 {
		t.Errorf("ocr.scale = %v, want 1.2", cfg.OCR.Scale)
	}
	if got := cfg.Extract.ProcessingTimeoutDuration(); got != 600*time.Second {
		t.Errorf("processing timeout = %v, want 600s", got)
	}
	if got := cfg.JobStore.RetentionDuration(); got != 24*time.Hour {
		t.Errorf("retention = %v, want 24h", got)
	}
	if got := cfg.JobStore.SweepIntervalDuration(); got != time.Hour {
		t.Errorf("sweep interval = %v, want 1h", got)
	}
}

func TestLoadConfig_LegacyEnvOverrides(t *testing.T) {
	t.Setenv("PDF_LINE_THRESHOLD", "7")
	t.Setenv("OCR_MAX_PAGES", "4")
	t.Setenv("ENABLE_DYNAMIC_SCALING", "false")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Extract.LineThreshold != 7 {
		t.Errorf("line_threshold = %v, want 7", cfg.Extract.LineThreshold)
	}
	if cfg.OCR.MaxPages != 4 {
		t.Errorf("ocr.max_pages = %d, want 4", cfg.OCR.MaxPages)
	}
	if cfg.Extract.EnableDynamicScaling {
		t.Error("enable_dynamic_scaling should be false")
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
api:
  port: 9090
extract:
  sufficient_text_length: 500
jobstore:
  type: memory
  retention: 48h
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("api.port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Extract.SufficientTextLength != 500 {
		t.Errorf("sufficient_text_length = %d, want 500", cfg.Extract.SufficientTextLength)
	}
	if got := cfg.JobStore.RetentionDuration(); got != 48*time.Hour {
		t.Errorf("retention = %v, want 48h", got)
	}
	// 文件未覆盖的键仍取默认值
	if cfg.OCR.MaxPages != 10 {
		t.Errorf("ocr.max_pages = %d, want 10", cfg.OCR.MaxPages)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("SUFFICIENT_TEXT_LENGTH", "50")
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected error when sufficient < min text length")
	}
}

func TestLoadConfig_PostgresRequiresDSN(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("jobstore:\n  type: postgres\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error when jobstore.type=postgres without dsn")
	}
}
