package config

import (
	"fmt"
	"time"

	"github.com/minecart-io/minecart/pace"
	"github.com/minecart-io/minecart/policy"
	"github.com/minecart-io/minecart/types"
)

// Config represents a minecart.yaml configuration file.
// All values act as defaults for run flags; CLI flags and REDMINE_*
// environment variables always override config values.
//
// The config is resolved once at startup and treated as immutable for the
// rest of the run.
type Config struct {
	// BaseURL is the root URL of the ticketing service.
	BaseURL string `yaml:"base_url"`
	// APIKey authenticates REST requests. Alternative to Username/Password.
	APIKey   string `yaml:"api_key"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// VerifySSL disables certificate verification when false.
	VerifySSL bool `yaml:"verify_ssl"`

	// DownloadDir is the root of the local download tree.
	DownloadDir string `yaml:"download_dir"`
	// ClearDownloads wipes the download tree before a download run.
	ClearDownloads bool `yaml:"clear_downloads"`

	Window  WindowConfig  `yaml:"window"`
	Pacing  PacingConfig  `yaml:"pacing"`
	Retry   RetryGroups   `yaml:"retry"`
	Browser BrowserConfig `yaml:"browser"`
	Delete  DeleteConfig  `yaml:"delete"`
}

// RetryGroups holds the independently configured retry policies.
// Metadata fetch and byte transfer share the mechanism but never a
// configuration value.
type RetryGroups struct {
	Fetch    RetryConfig `yaml:"fetch"`
	Transfer RetryConfig `yaml:"transfer"`
}

// WindowConfig bounds the offset window walked by a run.
type WindowConfig struct {
	OffsetStart int    `yaml:"offset_start"`
	OffsetEnd   int    `yaml:"offset_end"`
	Limit       int    `yaml:"limit"`
	Sort        string `yaml:"sort"`
}

// PacingConfig holds the per-kind wait intervals between outbound calls.
type PacingConfig struct {
	RequestInterval  Duration `yaml:"request_interval"`
	DownloadInterval Duration `yaml:"download_interval"`
}

// RetryConfig is one retry policy (count, flat interval, escalating timeout).
type RetryConfig struct {
	Count       int      `yaml:"count"`
	Interval    Duration `yaml:"interval"`
	BaseTimeout Duration `yaml:"base_timeout"`
	TimeoutStep Duration `yaml:"timeout_step"`
}

// BrowserConfig configures the deletion browser session.
type BrowserConfig struct {
	// BaseURL overrides the service base URL for the web UI. Empty means
	// the REST base URL is used.
	BaseURL  string   `yaml:"base_url"`
	Headless bool     `yaml:"headless"`
	Timeout  Duration `yaml:"timeout"`
}

// DeleteConfig holds deletion pacing and retry settings. Deletion timeouts
// start at the browser operation timeout and escalate by TimeoutStep.
type DeleteConfig struct {
	Interval      Duration `yaml:"interval"`
	RetryCount    int      `yaml:"retry_count"`
	RetryInterval Duration `yaml:"retry_interval"`
	TimeoutStep   Duration `yaml:"timeout_step"`
	// ConfirmSkip skips the run-level confirmation prompt, for unattended
	// runs. The per-item browser dialog is always accepted regardless.
	ConfirmSkip bool `yaml:"confirm_skip"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Default returns the configuration defaults. Load unmarshals on top of
// this, so absent keys keep their default values.
func Default() Config {
	return Config{
		VerifySSL:      true,
		DownloadDir:    "downloads",
		ClearDownloads: true,
		Window: WindowConfig{
			Limit: 10,
			Sort:  "created_on:asc",
		},
		Pacing: PacingConfig{
			RequestInterval:  Duration{time.Second},
			DownloadInterval: Duration{500 * time.Millisecond},
		},
		Retry: RetryGroups{
			Fetch: RetryConfig{
				Count:       3,
				Interval:    Duration{5 * time.Second},
				BaseTimeout: Duration{30 * time.Second},
				TimeoutStep: Duration{10 * time.Second},
			},
			Transfer: RetryConfig{
				Count:       3,
				Interval:    Duration{5 * time.Second},
				BaseTimeout: Duration{60 * time.Second},
				TimeoutStep: Duration{15 * time.Second},
			},
		},
		Browser: BrowserConfig{
			Headless: true,
			Timeout:  Duration{30 * time.Second},
		},
		Delete: DeleteConfig{
			Interval:      Duration{time.Second},
			RetryCount:    3,
			RetryInterval: Duration{2 * time.Second},
			TimeoutStep:   Duration{10 * time.Second},
		},
	}
}

// Validate checks the configuration for the given mode.
func (c *Config) Validate(mode types.Mode) error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if err := c.WindowSpec().Validate(); err != nil {
		return err
	}

	switch mode {
	case types.ModeDownload:
		if c.APIKey == "" && (c.Username == "" || c.Password == "") {
			return fmt.Errorf("download mode requires api_key or username and password")
		}
		if c.DownloadDir == "" {
			return fmt.Errorf("download_dir is required")
		}
	case types.ModeDelete:
		// The web UI login form needs real credentials; an API key is not
		// enough.
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("delete mode requires username and password")
		}
	default:
		return fmt.Errorf("invalid mode %q", mode)
	}
	return nil
}

// WindowSpec returns the offset window described by the config.
func (c *Config) WindowSpec() types.Window {
	return types.Window{
		Start: c.Window.OffsetStart,
		End:   c.Window.OffsetEnd,
		Limit: c.Window.Limit,
		Sort:  c.Window.Sort,
	}
}

// FetchPolicy returns the retry policy for collection metadata fetches.
func (c *Config) FetchPolicy() policy.Policy {
	return c.Retry.Fetch.policy()
}

// TransferPolicy returns the retry policy for attachment byte transfers.
func (c *Config) TransferPolicy() policy.Policy {
	return c.Retry.Transfer.policy()
}

func (r RetryConfig) policy() policy.Policy {
	return policy.Policy{
		MaxRetries:  r.Count,
		Interval:    r.Interval.Duration,
		BaseTimeout: r.BaseTimeout.Duration,
		TimeoutStep: r.TimeoutStep.Duration,
	}
}

// DeletePolicy returns the retry policy for browser deletion operations.
// Timeouts start at the browser operation timeout.
func (c *Config) DeletePolicy() policy.Policy {
	return policy.Policy{
		MaxRetries:  c.Delete.RetryCount,
		Interval:    c.Delete.RetryInterval.Duration,
		BaseTimeout: c.Browser.Timeout.Duration,
		TimeoutStep: c.Delete.TimeoutStep.Duration,
	}
}

// Intervals returns the governor pacing intervals.
func (c *Config) Intervals() pace.Intervals {
	return pace.Intervals{
		Request:  c.Pacing.RequestInterval.Duration,
		Download: c.Pacing.DownloadInterval.Duration,
		Delete:   c.Delete.Interval.Duration,
	}
}

// BrowserBaseURL returns the web UI base URL, falling back to the REST
// base URL.
func (c *Config) BrowserBaseURL() string {
	if c.Browser.BaseURL != "" {
		return c.Browser.BaseURL
	}
	return c.BaseURL
}
