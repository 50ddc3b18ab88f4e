package cmd

import (
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/minecart-io/minecart/metrics"
	"github.com/minecart-io/minecart/pace"
	"github.com/minecart-io/minecart/redmine"
	"github.com/minecart-io/minecart/runtime"
	"github.com/minecart-io/minecart/transfer"
	"github.com/minecart-io/minecart/types"
)

// DownloadCommand returns the `download` command, which walks the offset
// window and transfers every attachment into the local download tree.
func DownloadCommand() *cli.Command {
	return &cli.Command{
		Name:   "download",
		Usage:  "Download all attachments in the offset window",
		Flags:  append(commonFlags(), downloadFlags()...),
		Action: downloadAction,
	}
}

func downloadAction(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return invalidInput(err)
	}
	if err := cfg.Validate(types.ModeDownload); err != nil {
		return invalidInput(err)
	}

	meta := newRunMeta(types.ModeDownload)
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

	fs := afero.NewOsFs()

	runConfig := &runtime.RunConfig{
		RunMeta:        meta,
		Source:         redmine.NewPaginator(client, cfg.WindowSpec(), cfg.FetchPolicy(), logger),
		Governor:       pace.NewGovernor(cfg.Intervals()),
		Collector:      metrics.NewCollector(meta.RunID, string(meta.Mode)),
		Logger:         logger,
		Transfers:      transfer.NewExecutor(fs, client, cfg.DownloadDir, cfg.TransferPolicy(), redmine.Classify, logger),
		Fs:             fs,
		DownloadRoot:   cfg.DownloadDir,
		ClearDownloads: cfg.ClearDownloads,
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
