package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if cfg.Chunk.Side != 64 {
		t.Errorf("expected default chunk side 64, got %d", cfg.Chunk.Side)
	}
	if cfg.Residency.MaxLoaded != 2*cfg.Residency.MaxActive {
		t.Errorf("expected max_loaded == 2*max_active by default, got %d vs %d", cfg.Residency.MaxLoaded, cfg.Residency.MaxActive)
	}
}

func TestValidate_RejectsBadChunkSide(t *testing.T) {
	cfg := Default()
	cfg.Chunk.Side = 17
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for non-power-of-2 chunk side")
	}
	cfg.Chunk.Side = 8
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for chunk side below 16")
	}
}

func TestValidate_RejectsLoadedBelowActive(t *testing.T) {
	cfg := Default()
	cfg.Residency.MaxLoaded = cfg.Residency.MaxActive - 1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error when max_loaded < max_active")
	}
}
