package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/minecart-io/minecart/automation"
	"github.com/minecart-io/minecart/cli/config"
	"github.com/minecart-io/minecart/metrics"
	"github.com/minecart-io/minecart/pace"
	"github.com/minecart-io/minecart/redmine"
	"github.com/minecart-io/minecart/runtime"
	"github.com/minecart-io/minecart/types"
)

// DeleteCommand returns the `delete` command, which removes every attachment
// in the offset window through a browser automation session.
func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:   "delete",
		Usage:  "Delete all attachments in the offset window via the web UI",
		Flags:  append(commonFlags(), deleteFlags()...),
		Action: deleteAction,
	}
}

func deleteAction(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return invalidInput(err)
	}
	if err := cfg.Validate(types.ModeDelete); err != nil {
		return invalidInput(err)
	}

	meta := newRunMeta(types.ModeDelete)
	logger := newRunLogger(c, meta)

	client, err := redmine.NewClient(redmine.Options{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Username:  cfg.Username,
		Password:  cfg.Password,
		VerifySSL: cfg.VerifySSL,
	}, logger)
	if err != nil {
		return invalidInput(err)
	}

	governor := pace.NewGovernor(cfg.Intervals())
	driver := automation.NewChromeDriver(cfg.BrowserBaseURL(), automation.ChromeOptions{
		Headless: cfg.Browser.Headless,
	}, logger)
	deleter := automation.NewDeleter(driver, cfg.BrowserBaseURL(), governor, cfg.DeletePolicy(), logger)

	runConfig := &runtime.RunConfig{
		RunMeta:   meta,
		Source:    redmine.NewPaginator(client, cfg.WindowSpec(), cfg.FetchPolicy(), logger),
		Governor:  governor,
		Collector: metrics.NewCollector(meta.RunID, string(meta.Mode)),
		Logger:    logger,
		Deleter:   deleter,
		Confirm:   confirmDelete(c, cfg),
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	orch, err := runtime.NewOrchestrator(runConfig)
	if err != nil {
		return invalidInput(err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	result, err := orch.Execute(ctx)
	if err != nil {
		return invalidInput(err)
	}

	return finishRun(c, result)
}

// confirmDelete builds the run confirmer. confirm_skip (flag, env, or
// config file) and --yes both answer for the operator, for unattended runs;
// otherwise a prompt is read from stdin.
func confirmDelete(c *cli.Context, cfg *config.Config) runtime.Confirmer {
	if cfg.Delete.ConfirmSkip || c.Bool("yes") {
		return func() (bool, error) { return true, nil }
	}

	return func() (bool, error) {
		fmt.Fprint(os.Stderr, "This permanently deletes every attachment in the window. Proceed? [y/N] ")

		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return false, fmt.Errorf("reading confirmation: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
