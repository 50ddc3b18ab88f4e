package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/minecart-io/minecart/log"
	"github.com/minecart-io/minecart/runtime"
	"github.com/minecart-io/minecart/types"
)

func invalidInput(err error) error {
	return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), runtime.ExitCodeInvalidInput)
}

// newRunMeta mints the identity for a fresh run.
func newRunMeta(mode types.Mode) *types.RunMeta {
	return &types.RunMeta{
		RunID: uuid.NewString(),
		Mode:  mode,
	}
}

// newRunLogger builds the run logger, attaching a rotating debug file when
// --log-dir is set.
func newRunLogger(c *cli.Context, meta *types.RunMeta) *log.Logger {
	var sink *log.FileSink
	if dir := c.String("log-dir"); dir != "" {
		sink = &log.FileSink{
			Dir:  dir,
			Name: fmt.Sprintf("minecart_%s.log", meta.Mode),
		}
	}
	return log.NewLogger(meta, sink)
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}

// finishRun renders the summary, writes the optional report, and maps the
// outcome onto the process exit code.
func finishRun(c *cli.Context, result *runtime.RunResult) error {
	exitCode := runtime.ExitCodeFor(result.Outcome.Status)

	if !c.Bool("quiet") {
		printSummary(os.Stdout, result)
	}

	if path := c.String("report"); path != "" {
		if err := runtime.WriteRunReport(runtime.BuildRunReport(result, exitCode), path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}

	return cli.Exit("", exitCode)
}
