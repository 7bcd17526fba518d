package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected sqlite", cfg.Database.Driver)
	}
	if cfg.Realtime.Driver != "local" {
		t.Errorf("Realtime.Driver = %q, expected local", cfg.Realtime.Driver)
	}
	if cfg.Invoice.DueBusinessDays != 14 {
		t.Errorf("Invoice.DueBusinessDays = %d, expected 14", cfg.Invoice.DueBusinessDays)
	}
}

func TestParseRedisURL(t *testing.T) {
	cases := []struct {
		url      string
		addr     string
		password string
		db       int
	}{
		{"redis://localhost:6379", "localhost:6379", "", 0},
		{"redis://:secret@cache:6380/2", "cache:6380", "secret", 2},
		{"redis://user:pw@10.0.0.5:6379/1", "10.0.0.5:6379", "pw", 1},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		cfg.parseRedisURL(tc.url)

		if cfg.Redis.Addr != tc.addr {
			t.Errorf("%s: Addr = %q, expected %q", tc.url, cfg.Redis.Addr, tc.addr)
		}
		if cfg.Redis.Password != tc.password {
			t.Errorf("%s: Password = %q, expected %q", tc.url, cfg.Redis.Password, tc.password)
		}
		if cfg.Redis.DB != tc.db {
			t.Errorf("%s: DB = %d, expected %d", tc.url, cfg.Redis.DB, tc.db)
		}
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: \"9090\"\ninvoice:\n  holiday_country: US\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.Invoice.HolidayCountry != "US" {
		t.Errorf("Invoice.HolidayCountry = %q, expected US", cfg.Invoice.HolidayCountry)
	}
	if cfg.Invoice.DueBusinessDays != 14 {
		t.Errorf("Invoice.DueBusinessDays = %d, expected default 14", cfg.Invoice.DueBusinessDays)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://:pw@redis:6379/3")
	t.Setenv("CRON_SECRET", "tick")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Redis.Enabled {
		t.Error("REDIS_URL should enable redis")
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("Redis.DB = %d, expected 3", cfg.Redis.DB)
	}
	if cfg.Maintenance.CronSecret != "tick" {
		t.Errorf("CronSecret = %q, expected tick", cfg.Maintenance.CronSecret)
	}
}
