package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
controllers:
  - host: 192.168.1.40
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	c := cfg.Controllers[0]
	if c.GroupInterval.Duration() != DefaultGroupInterval {
		t.Errorf("GroupInterval = %v, want %v", c.GroupInterval.Duration(), DefaultGroupInterval)
	}
	if c.ThemeInterval.Duration() != DefaultThemeInterval {
		t.Errorf("ThemeInterval = %v, want %v", c.ThemeInterval.Duration(), DefaultThemeInterval)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.API.Addr() != "0.0.0.0:8080" {
		t.Errorf("API.Addr() = %q", cfg.API.Addr())
	}
	if cfg.Ledger.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d", cfg.Ledger.RetentionDays)
	}
}

func TestParseIntervals(t *testing.T) {
	cfg, err := Parse([]byte(`
controllers:
  - host: http://lux.local:8080
    group_interval: 15
    theme_interval: 5m
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	c := cfg.Controllers[0]
	if c.Host != "lux.local:8080" {
		t.Errorf("Host = %q, scheme should be stripped", c.Host)
	}
	if c.GroupInterval.Duration() != 15*time.Second {
		t.Errorf("GroupInterval = %v, want 15s", c.GroupInterval.Duration())
	}
	if c.ThemeInterval.Duration() != 5*time.Minute {
		t.Errorf("ThemeInterval = %v, want 5m", c.ThemeInterval.Duration())
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no controllers",
			yaml: `log: {level: info}`,
			want: "at least one controller",
		},
		{
			name: "group interval too short",
			yaml: "controllers:\n  - host: a\n    group_interval: 2s\n",
			want: "group_interval",
		},
		{
			name: "theme interval too short",
			yaml: "controllers:\n  - host: a\n    theme_interval: 30s\n",
			want: "theme_interval",
		},
		{
			name: "missing host",
			yaml: "controllers:\n  - group_interval: 10s\n",
			want: "host is required",
		},
		{
			name: "duplicate host",
			yaml: "controllers:\n  - host: a\n  - host: a\n",
			want: "duplicate host",
		},
		{
			name: "bad log level",
			yaml: "controllers:\n  - host: a\nlog:\n  level: loud\n",
			want: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("LUXOR_HOST", "10.0.0.9")

	cfg, err := Parse([]byte(`
controllers:
  - host: ${LUXOR_HOST}
database:
  path: ${LUXORD_DB:/var/lib/luxord.sqlite}
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Controllers[0].Host != "10.0.0.9" {
		t.Errorf("Host = %q", cfg.Controllers[0].Host)
	}
	if cfg.Database.Path != "/var/lib/luxord.sqlite" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}
