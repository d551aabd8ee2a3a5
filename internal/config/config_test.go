package config

import (
	"testing"
	"time"
)

func TestDefault_Values(t *testing.T) {
	c := Default()
	if c == nil {
		t.Fatal("Default() returned nil")
	}
	if c.RecordExpiry != 60*24*time.Hour {
		t.Errorf("RecordExpiry = %v, want 1440h", c.RecordExpiry)
	}
	if !c.Compress {
		t.Errorf("Compress = false, want true")
	}
	if c.IngestConcurrency != 8 {
		t.Errorf("IngestConcurrency = %v, want 8", c.IngestConcurrency)
	}
	if c.MaintenanceCron == "" {
		t.Errorf("MaintenanceCron is empty")
	}
	if c.DBPath == "" || c.StorePath == "" || c.ExportPath == "" {
		t.Errorf("expected non-empty paths, got DBPath=%q StorePath=%q ExportPath=%q", c.DBPath, c.StorePath, c.ExportPath)
	}
}
