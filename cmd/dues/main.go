package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wsjrdp/dues/pkg/logging"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logging.Setup()

	if len(args) == 0 {
		printUsage()
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := dispatchCommand(ctx, args[0], args[1:])
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case isUsageError(err):
		fmt.Fprintln(os.Stderr, err)
		printUsage()
		return exitUsage
	default:
		slog.Error("Run failed", "error", err)
		return exitError
	}
}

func dispatchCommand(ctx context.Context, name string, args []string) error {
	switch name {
	case "run":
		return runCollect(ctx, args)
	case "preview":
		return runPreview(ctx, args)
	case "balances":
		return runBalances(ctx, args)
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageErrorf("unknown command %q", name)
	}
}

type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func isUsageError(err error) bool {
	var ue *usageError
	return errors.As(err, &ue)
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: dues <command> [flags]

Commands:
  run       compute balances, write the SEPA batch and diagnostics
  preview   write the collection preview CSV
  balances  log every participant's balance

Flags of run:
  -out DIR        output directory (default "data")
  -persist        book collections and set SEPA status after writing
  -prenotify      write pre-notification PDF
  -transfer       write transfer-notice PDF for skipped participants
  -metrics FILE   write Prometheus textfile

Flags of preview:
  -out FILE       output file (default stdout)

Settings are read from the environment and .env, see internal/config.
`)
}
