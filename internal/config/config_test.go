package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get home dir: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"absolute path", "/etc/swashakti/checks.yaml", "/etc/swashakti/checks.yaml"},
		{"absolute with trailing slash", "/etc/swashakti/", "/etc/swashakti"},
		{"tilde only", "~", home},
		{"tilde with path", "~/checks.yaml", filepath.Join(home, "checks.yaml")},
		{"relative", "conf/checks.yaml", "conf/checks.yaml"},
		{"relative with dots", "conf/../checks.yaml", "checks.yaml"},
		{"tilde in middle (not expanded)", "/home/~user", "/home/~user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandPath(tt.input)
			if got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name       string
		envValue   string
		defaultVal int
		want       int
	}{
		{"empty env", "", 42, 42},
		{"valid int", "123", 42, 123},
		{"invalid int", "not-a-number", 42, 42},
		{"negative int", "-5", 42, -5},
		{"zero", "0", 42, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT", tt.envValue)

			got := getEnvInt("TEST_INT", tt.defaultVal)
			if got != tt.want {
				t.Errorf("getEnvInt(%q) = %d, want %d", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"empty env", "", time.Second},
		{"milliseconds", "250ms", 250 * time.Millisecond},
		{"minutes", "5m", 5 * time.Minute},
		{"invalid", "soon", time.Second},
		{"bare number", "100", time.Second},
		{"zero", "0s", time.Second},
		{"negative", "-1s", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.envValue)

			got := getEnvDuration("TEST_DURATION", time.Second)
			if got != tt.want {
				t.Errorf("getEnvDuration(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvDelay(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"empty env", "", time.Second},
		{"zero", "0s", 0},
		{"bare zero", "0", 0},
		{"milliseconds", "250ms", 250 * time.Millisecond},
		{"negative", "-1s", time.Second},
		{"invalid", "soon", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DELAY", tt.envValue)

			got := getEnvDelay("TEST_DELAY", time.Second)
			if got != tt.want {
				t.Errorf("getEnvDelay(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestLoad_ZeroSettleDelay(t *testing.T) {
	t.Setenv("SWASHAKTI_SETTLE_DELAY", "0")

	cfg := Load()
	if cfg.SettleDelay != 0 {
		t.Errorf("SettleDelay = %v, want 0", cfg.SettleDelay)
	}
	if _, err := scan.New(scan.DefaultChecks, cfg.ScanOptions()...); err != nil {
		t.Errorf("zero settle delay rejected: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"SWASHAKTI_PORT", "SWASHAKTI_LOG_LEVEL", "SWASHAKTI_TICK_INTERVAL", "SWASHAKTI_TICK_STEP",
		"SWASHAKTI_SETTLE_DELAY", "SWASHAKTI_CHECKS_FILE", "SWASHAKTI_RETENTION", "SWASHAKTI_CLEANUP_SCHEDULE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.TickInterval != scan.DefaultInterval {
		t.Errorf("TickInterval = %v, want %v", cfg.TickInterval, scan.DefaultInterval)
	}
	if cfg.TickStep != scan.DefaultStep {
		t.Errorf("TickStep = %d, want %d", cfg.TickStep, scan.DefaultStep)
	}
	if cfg.SettleDelay != scan.DefaultSettleDelay {
		t.Errorf("SettleDelay = %v, want %v", cfg.SettleDelay, scan.DefaultSettleDelay)
	}
	if cfg.ChecksFile != "" {
		t.Errorf("ChecksFile = %q, want empty", cfg.ChecksFile)
	}
	if cfg.Retention != 24*time.Hour {
		t.Errorf("Retention = %v, want 24h", cfg.Retention)
	}
	if cfg.CleanupSchedule != "@every 10m" {
		t.Errorf("CleanupSchedule = %q, want @every 10m", cfg.CleanupSchedule)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SWASHAKTI_PORT", "9090")
	t.Setenv("SWASHAKTI_TICK_INTERVAL", "10ms")
	t.Setenv("SWASHAKTI_TICK_STEP", "5")
	t.Setenv("SWASHAKTI_SETTLE_DELAY", "1s")
	t.Setenv("SWASHAKTI_CLEANUP_SCHEDULE", "0 * * * *")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.TickInterval != 10*time.Millisecond {
		t.Errorf("TickInterval = %v, want 10ms", cfg.TickInterval)
	}
	if cfg.TickStep != 5 {
		t.Errorf("TickStep = %d, want 5", cfg.TickStep)
	}
	if cfg.SettleDelay != time.Second {
		t.Errorf("SettleDelay = %v, want 1s", cfg.SettleDelay)
	}
	if cfg.CleanupSchedule != "0 * * * *" {
		t.Errorf("CleanupSchedule = %q", cfg.CleanupSchedule)
	}

	// The options must build a valid run
	if _, err := scan.New(scan.DefaultChecks, cfg.ScanOptions()...); err != nil {
		t.Errorf("ScanOptions produced an invalid run: %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoadChecks(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantCount int
		wantErr   bool
	}{
		{
			name: "valid",
			content: `checks:
  - label: Edge Seal
    detail: Checking seal integrity
  - label: Weave Density
    detail: Counting threads
`,
			wantCount: 2,
		},
		{name: "empty list", content: "checks: []\n", wantErr: true},
		{name: "missing key", content: "other: 1\n", wantErr: true},
		{name: "missing label", content: "checks:\n  - detail: no label\n", wantErr: true},
		{name: "invalid yaml", content: "checks: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "checks.yaml")
			writeFile(t, path, tt.content)

			checks, err := LoadChecks(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadChecks error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(checks) != tt.wantCount {
				t.Errorf("got %d checks, want %d", len(checks), tt.wantCount)
			}
		})
	}
}

func TestLoadChecks_EmptyIsInvalidCheckList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.yaml")
	writeFile(t, path, "checks: []\n")

	_, err := LoadChecks(path)
	if !errors.Is(err, scan.ErrInvalidCheckList) {
		t.Errorf("error = %v, want ErrInvalidCheckList", err)
	}
}

func TestLoadChecks_MissingFile(t *testing.T) {
	if _, err := LoadChecks("/nonexistent/checks.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNewCheckList_Default(t *testing.T) {
	l, err := NewCheckList("")
	if err != nil {
		t.Fatalf("NewCheckList failed: %v", err)
	}

	got := l.Checks()
	if len(got) != len(scan.DefaultChecks) {
		t.Fatalf("got %d checks, want %d", len(got), len(scan.DefaultChecks))
	}

	// Callers get a copy
	got[0].Label = "changed"
	if l.Checks()[0].Label != scan.DefaultChecks[0].Label {
		t.Error("Checks returned shared storage")
	}
}

func TestCheckList_ReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.yaml")
	writeFile(t, path, "checks:\n  - label: A\n  - label: B\n")

	l, err := NewCheckList(path)
	if err != nil {
		t.Fatalf("NewCheckList failed: %v", err)
	}

	writeFile(t, path, "checks: []\n")
	if err := l.Reload(); err == nil {
		t.Error("expected reload error")
	}
	if n := len(l.Checks()); n != 2 {
		t.Errorf("got %d checks after failed reload, want 2", n)
	}
}

func TestCheckList_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.yaml")
	writeFile(t, path, "checks:\n  - label: A\n")

	l, err := NewCheckList(path)
	if err != nil {
		t.Fatalf("NewCheckList failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Watch(ctx) }()

	// Give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "checks:\n  - label: A\n  - label: B\n  - label: C\n")

	deadline := time.Now().Add(3 * time.Second)
	for len(l.Checks()) != 3 {
		if time.Now().After(deadline) {
			t.Fatalf("check list not reloaded, have %d checks", len(l.Checks()))
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestCheckList_WatchWithoutFile(t *testing.T) {
	l, _ := NewCheckList("")
	if err := l.Watch(context.Background()); err != nil {
		t.Errorf("Watch without file = %v, want nil", err)
	}
}
