// Package cmd provides CLI commands for the minecart binary.
package cmd

import (
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/minecart-io/minecart/cli/config"
)

// defaultConfigFile is picked up from the working directory when --config
// is not given.
const defaultConfigFile = "minecart.yaml"

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to YAML config file",
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL of the ticketing service",
			EnvVars: []string{"REDMINE_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for REST authentication",
			EnvVars: []string{"REDMINE_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "username",
			Usage:   "Account username",
			EnvVars: []string{"REDMINE_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "Account password",
			EnvVars: []string{"REDMINE_PASSWORD"},
		},
		&cli.BoolFlag{
			Name:    "verify-ssl",
			Usage:   "Verify TLS certificates",
			Value:   true,
			EnvVars: []string{"REDMINE_VERIFY_SSL"},
		},
		&cli.IntFlag{
			Name:    "offset-start",
			Usage:   "First record index to process",
			EnvVars: []string{"REDMINE_OFFSET_START"},
		},
		&cli.IntFlag{
			Name:    "offset-end",
			Usage:   "Exclusive upper index bound (0 = unbounded)",
			EnvVars: []string{"REDMINE_OFFSET_END"},
		},
		&cli.IntFlag{
			Name:    "limit",
			Usage:   "Page size for collection fetches",
			Value:   10,
			EnvVars: []string{"REDMINE_LIMIT"},
		},
		&cli.StringFlag{
			Name:    "sort",
			Usage:   "Remote sort expression",
			Value:   "created_on:asc",
			EnvVars: []string{"REDMINE_SORT"},
		},
		&cli.DurationFlag{
			Name:    "request-interval",
			Usage:   "Wait between collection fetches",
			Value:   time.Second,
			EnvVars: []string{"REDMINE_REQUEST_INTERVAL"},
		},
		&cli.IntFlag{
			Name:    "retry-count",
			Usage:   "Retries per REST operation (fetch and transfer)",
			Value:   3,
			EnvVars: []string{"REDMINE_RETRY_COUNT"},
		},
		&cli.DurationFlag{
			Name:    "retry-interval",
			Usage:   "Wait between retries of a REST operation (fetch and transfer)",
			Value:   5 * time.Second,
			EnvVars: []string{"REDMINE_RETRY_INTERVAL"},
		},
		&cli.StringFlag{
			Name:  "log-dir",
			Usage: "Directory for rotating debug log files",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a JSON run report to PATH ('-' for stderr)",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "Suppress the summary table",
		},
	}
}

func downloadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "download-dir",
			Usage:   "Root of the local download tree",
			EnvVars: []string{"REDMINE_DOWNLOAD_DIR"},
		},
		&cli.BoolFlag{
			Name:    "clear-downloads",
			Usage:   "Wipe the download tree before the run",
			Value:   true,
			EnvVars: []string{"REDMINE_CLEAR_DOWNLOADS"},
		},
		&cli.DurationFlag{
			Name:    "download-interval",
			Usage:   "Wait between attachment downloads",
			Value:   500 * time.Millisecond,
			EnvVars: []string{"REDMINE_DOWNLOAD_INTERVAL"},
		},
	}
}

func deleteFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "browser-base-url",
			Usage:   "Web UI base URL (defaults to --base-url)",
			EnvVars: []string{"REDMINE_BROWSER_BASE_URL"},
		},
		&cli.BoolFlag{
			Name:    "headless",
			Usage:   "Run the browser headless",
			Value:   true,
			EnvVars: []string{"REDMINE_BROWSER_HEADLESS"},
		},
		&cli.DurationFlag{
			Name:    "browser-timeout",
			Usage:   "Base timeout for browser operations",
			Value:   30 * time.Second,
			EnvVars: []string{"REDMINE_BROWSER_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "delete-interval",
			Usage:   "Wait between attachment deletions",
			Value:   time.Second,
			EnvVars: []string{"REDMINE_DELETE_INTERVAL"},
		},
		&cli.IntFlag{
			Name:    "delete-retry-count",
			Usage:   "Retries per deletion",
			Value:   3,
			EnvVars: []string{"REDMINE_DELETE_RETRY_COUNT"},
		},
		&cli.DurationFlag{
			Name:    "delete-retry-interval",
			Usage:   "Wait between retries of a deletion",
			Value:   2 * time.Second,
			EnvVars: []string{"REDMINE_DELETE_RETRY_INTERVAL"},
		},
		&cli.BoolFlag{
			Name:    "confirm-skip",
			Usage:   "Skip the run-level confirmation prompt (unattended runs)",
			EnvVars: []string{"REDMINE_DELETE_CONFIRM_SKIP"},
		},
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Skip the run-level confirmation prompt (alias for --confirm-skip)",
		},
	}
}

// resolveConfig builds the effective config: file values (or defaults) with
// flag and environment overrides applied on top.
func resolveConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config

	switch {
	case c.String("config") != "":
		loaded, err := config.Load(c.String("config"))
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case fileExists(defaultConfigFile):
		loaded, err := config.Load(defaultConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		def := config.Default()
		cfg = &def
	}

	applyOverrides(c, cfg)
	return cfg, nil
}

// applyOverrides copies explicitly set flag (or environment) values onto
// the config. Unset flags keep the file's values.
func applyOverrides(c *cli.Context, cfg *config.Config) {
	if c.IsSet("base-url") {
		cfg.BaseURL = c.String("base-url")
	}
	if c.IsSet("api-key") {
		cfg.APIKey = c.String("api-key")
	}
	if c.IsSet("username") {
		cfg.Username = c.String("username")
	}
	if c.IsSet("password") {
		cfg.Password = c.String("password")
	}
	if c.IsSet("verify-ssl") {
		cfg.VerifySSL = c.Bool("verify-ssl")
	}
	if c.IsSet("offset-start") {
		cfg.Window.OffsetStart = c.Int("offset-start")
	}
	if c.IsSet("offset-end") {
		cfg.Window.OffsetEnd = c.Int("offset-end")
	}
	if c.IsSet("limit") {
		cfg.Window.Limit = c.Int("limit")
	}
	if c.IsSet("sort") {
		cfg.Window.Sort = c.String("sort")
	}
	if c.IsSet("request-interval") {
		cfg.Pacing.RequestInterval = config.Duration{Duration: c.Duration("request-interval")}
	}
	// The flags are coarse: they set both REST retry groups. The config
	// file is the place to tune fetch and transfer independently.
	if c.IsSet("retry-count") {
		cfg.Retry.Fetch.Count = c.Int("retry-count")
		cfg.Retry.Transfer.Count = c.Int("retry-count")
	}
	if c.IsSet("retry-interval") {
		cfg.Retry.Fetch.Interval = config.Duration{Duration: c.Duration("retry-interval")}
		cfg.Retry.Transfer.Interval = config.Duration{Duration: c.Duration("retry-interval")}
	}

	// Download mode flags
	if c.IsSet("download-dir") {
		cfg.DownloadDir = c.String("download-dir")
	}
	if c.IsSet("clear-downloads") {
		cfg.ClearDownloads = c.Bool("clear-downloads")
	}
	if c.IsSet("download-interval") {
		cfg.Pacing.DownloadInterval = config.Duration{Duration: c.Duration("download-interval")}
	}

	// Delete mode flags
	if c.IsSet("browser-base-url") {
		cfg.Browser.BaseURL = c.String("browser-base-url")
	}
	if c.IsSet("headless") {
		cfg.Browser.Headless = c.Bool("headless")
	}
	if c.IsSet("browser-timeout") {
		cfg.Browser.Timeout = config.Duration{Duration: c.Duration("browser-timeout")}
	}
	if c.IsSet("delete-interval") {
		cfg.Delete.Interval = config.Duration{Duration: c.Duration("delete-interval")}
	}
	if c.IsSet("delete-retry-count") {
		cfg.Delete.RetryCount = c.Int("delete-retry-count")
	}
	if c.IsSet("delete-retry-interval") {
		cfg.Delete.RetryInterval = config.Duration{Duration: c.Duration("delete-retry-interval")}
	}
	if c.IsSet("confirm-skip") {
		cfg.Delete.ConfirmSkip = c.Bool("confirm-skip")
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
