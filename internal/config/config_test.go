package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ScanDuration != 3*time.Second {
		t.Fatalf("expected 3s scan duration, got %s", cfg.ScanDuration)
	}
	if cfg.RegisterDelay != 2*time.Second || cfg.AuthenticateDelay != 3*time.Second {
		t.Fatalf("unexpected delays: register=%s authenticate=%s", cfg.RegisterDelay, cfg.AuthenticateDelay)
	}
	if cfg.MatchMode != "presence" {
		t.Fatalf("expected presence match mode, got %s", cfg.MatchMode)
	}
	if cfg.JWTSecret == "" {
		t.Fatal("expected dev secret fallback")
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadDurationForms(t *testing.T) {
	t.Setenv("SCAN_DURATION_MS", "1500")
	t.Setenv("REGISTER_DELAY_SECONDS", "4")
	t.Setenv("AUTHENTICATE_DELAY", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ScanDuration != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %s", cfg.ScanDuration)
	}
	if cfg.RegisterDelay != 4*time.Second {
		t.Fatalf("expected 4s, got %s", cfg.RegisterDelay)
	}
	if cfg.AuthenticateDelay != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %s", cfg.AuthenticateDelay)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad duration":   {"SCAN_DURATION", "soon"},
		"bad match mode": {"MATCH_MODE", "fuzzy"},
		"bad threshold":  {"MATCH_THRESHOLD", "ten"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestLoadRequiresSecretOutsideDev(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing JWT_SECRET error")
	}
}
