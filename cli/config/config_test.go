package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minecart-io/minecart/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "minecart.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if !cfg.VerifySSL || !cfg.ClearDownloads {
		t.Error("verify_ssl and clear_downloads must default on")
	}
	if cfg.DownloadDir != "downloads" {
		t.Errorf("download_dir = %q", cfg.DownloadDir)
	}
	if cfg.Window.Limit != 10 || cfg.Window.Sort != "created_on:asc" {
		t.Errorf("window defaults = %+v", cfg.Window)
	}
	if cfg.Pacing.RequestInterval.Duration != time.Second {
		t.Errorf("request_interval = %v", cfg.Pacing.RequestInterval.Duration)
	}
	if cfg.Pacing.DownloadInterval.Duration != 500*time.Millisecond {
		t.Errorf("download_interval = %v", cfg.Pacing.DownloadInterval.Duration)
	}
	if cfg.Retry.Fetch.Count != 3 || cfg.Retry.Fetch.Interval.Duration != 5*time.Second {
		t.Errorf("fetch retry defaults = %+v", cfg.Retry.Fetch)
	}
	if cfg.Retry.Transfer.BaseTimeout.Duration != 60*time.Second {
		t.Errorf("transfer retry defaults = %+v", cfg.Retry.Transfer)
	}
	if !cfg.Browser.Headless || cfg.Browser.Timeout.Duration != 30*time.Second {
		t.Errorf("browser defaults = %+v", cfg.Browser)
	}
	if cfg.Delete.Interval.Duration != time.Second || cfg.Delete.RetryCount != 3 {
		t.Errorf("delete defaults = %+v", cfg.Delete)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
base_url: https://tickets.example.com
api_key: secret
verify_ssl: false
download_dir: /tmp/pull
clear_downloads: false
window:
  offset_start: 100
  offset_end: 200
  limit: 25
  sort: id:desc
pacing:
  request_interval: 2s
  download_interval: 250ms
retry:
  fetch:
    count: 5
    interval: 10s
    base_timeout: 20s
    timeout_step: 5s
  transfer:
    count: 2
    interval: 3s
    base_timeout: 90s
    timeout_step: 30s
browser:
  base_url: https://tickets-ui.example.com
  headless: false
  timeout: 45s
delete:
  interval: 3s
  retry_count: 2
  retry_interval: 1s
  confirm_skip: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.BaseURL != "https://tickets.example.com" || cfg.APIKey != "secret" {
		t.Errorf("identity = %q / %q", cfg.BaseURL, cfg.APIKey)
	}
	if cfg.VerifySSL || cfg.ClearDownloads {
		t.Error("explicit false values not honored")
	}
	if cfg.Window.OffsetStart != 100 || cfg.Window.OffsetEnd != 200 || cfg.Window.Limit != 25 {
		t.Errorf("window = %+v", cfg.Window)
	}
	if cfg.Pacing.RequestInterval.Duration != 2*time.Second {
		t.Errorf("request_interval = %v", cfg.Pacing.RequestInterval.Duration)
	}
	if cfg.Retry.Fetch.Count != 5 || cfg.Retry.Fetch.BaseTimeout.Duration != 20*time.Second {
		t.Errorf("fetch retry = %+v", cfg.Retry.Fetch)
	}
	if cfg.Retry.Transfer.Count != 2 || cfg.Retry.Transfer.BaseTimeout.Duration != 90*time.Second {
		t.Errorf("transfer retry = %+v", cfg.Retry.Transfer)
	}
	if cfg.Browser.Headless || cfg.Browser.Timeout.Duration != 45*time.Second {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if !cfg.Delete.ConfirmSkip || cfg.Delete.Interval.Duration != 3*time.Second {
		t.Errorf("delete = %+v", cfg.Delete)
	}
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
base_url: https://tickets.example.com
api_key: secret
window:
  limit: 50
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Window.Limit != 50 {
		t.Errorf("limit = %d, want 50", cfg.Window.Limit)
	}
	if cfg.Window.Sort != "created_on:asc" {
		t.Errorf("sort lost its default: %q", cfg.Window.Sort)
	}
	if !cfg.VerifySSL {
		t.Error("verify_ssl lost its default")
	}
	if cfg.Retry.Fetch.Count != 3 {
		t.Errorf("fetch retry count lost its default: %d", cfg.Retry.Fetch.Count)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TICKETS_KEY", "from-env")
	path := writeConfig(t, `
base_url: ${TICKETS_URL:-https://tickets.example.com}
api_key: ${TICKETS_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("api_key = %q", cfg.APIKey)
	}
	if cfg.BaseURL != "https://tickets.example.com" {
		t.Errorf("base_url = %q", cfg.BaseURL)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
pacing:
  request_interval: quickly
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.BaseURL = "https://tickets.example.com"
		cfg.APIKey = "secret"
		cfg.Username = "alice"
		cfg.Password = "hunter2"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		mode    types.Mode
		wantErr bool
	}{
		{"download ok", func(*Config) {}, types.ModeDownload, false},
		{"delete ok", func(*Config) {}, types.ModeDelete, false},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, types.ModeDownload, true},
		{"download with api key only", func(c *Config) { c.Username, c.Password = "", "" }, types.ModeDownload, false},
		{"download with basic auth only", func(c *Config) { c.APIKey = "" }, types.ModeDownload, false},
		{"download without credentials", func(c *Config) { c.APIKey, c.Username, c.Password = "", "", "" }, types.ModeDownload, true},
		{"delete needs form credentials", func(c *Config) { c.Username = "" }, types.ModeDelete, true},
		{"zero page limit", func(c *Config) { c.Window.Limit = 0 }, types.ModeDownload, true},
		{"empty download dir", func(c *Config) { c.DownloadDir = "" }, types.ModeDownload, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate(tt.mode)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_PolicyAndIntervalMapping(t *testing.T) {
	cfg := Default()
	cfg.Retry.Fetch = RetryConfig{
		Count:       4,
		Interval:    Duration{6 * time.Second},
		BaseTimeout: Duration{10 * time.Second},
		TimeoutStep: Duration{2 * time.Second},
	}
	cfg.Retry.Transfer = RetryConfig{
		Count:       1,
		Interval:    Duration{time.Second},
		BaseTimeout: Duration{45 * time.Second},
		TimeoutStep: Duration{5 * time.Second},
	}
	cfg.Delete.RetryCount = 2
	cfg.Delete.RetryInterval = Duration{time.Second}
	cfg.Delete.Interval = Duration{4 * time.Second}

	fetch := cfg.FetchPolicy()
	if fetch.MaxRetries != 4 || fetch.Interval != 6*time.Second || fetch.BaseTimeout != 10*time.Second || fetch.TimeoutStep != 2*time.Second {
		t.Errorf("fetch policy = %+v", fetch)
	}

	xfer := cfg.TransferPolicy()
	if xfer.MaxRetries != 1 || xfer.BaseTimeout != 45*time.Second || xfer.TimeoutStep != 5*time.Second {
		t.Errorf("transfer policy = %+v", xfer)
	}

	del := cfg.DeletePolicy()
	if del.MaxRetries != 2 || del.Interval != time.Second || del.BaseTimeout != 30*time.Second || del.TimeoutStep != 10*time.Second {
		t.Errorf("delete policy = %+v", del)
	}

	iv := cfg.Intervals()
	if iv.Request != time.Second || iv.Download != 500*time.Millisecond || iv.Delete != 4*time.Second {
		t.Errorf("intervals = %+v", iv)
	}
}

func TestConfig_WindowSpec(t *testing.T) {
	cfg := Default()
	cfg.Window = WindowConfig{OffsetStart: 5, OffsetEnd: 50, Limit: 20, Sort: "id:asc"}

	w := cfg.WindowSpec()
	if w.Start != 5 || w.End != 50 || w.Limit != 20 || w.Sort != "id:asc" {
		t.Errorf("window = %+v", w)
	}
}

func TestConfig_BrowserBaseURLFallback(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "https://tickets.example.com"

	if got := cfg.BrowserBaseURL(); got != "https://tickets.example.com" {
		t.Errorf("fallback = %q", got)
	}

	cfg.Browser.BaseURL = "https://tickets-ui.example.com"
	if got := cfg.BrowserBaseURL(); got != "https://tickets-ui.example.com" {
		t.Errorf("override = %q", got)
	}
}

func TestLoadDotEnv_DoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DOTENV_PROBE=file\nDOTENV_FRESH=file\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("DOTENV_PROBE", "process")
	t.Setenv("DOTENV_FRESH", "")
	_ = os.Unsetenv("DOTENV_FRESH")

	LoadDotEnv()

	if got := os.Getenv("DOTENV_PROBE"); got != "process" {
		t.Errorf("process env overridden: %q", got)
	}
	if got := os.Getenv("DOTENV_FRESH"); got != "file" {
		t.Errorf("unset var not loaded from .env: %q", got)
	}
}
