package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/wsjrdp/dues/internal/batch"
	"github.com/wsjrdp/dues/internal/config"
	"github.com/wsjrdp/dues/internal/metrics"
	"github.com/wsjrdp/dues/internal/models"
	"github.com/wsjrdp/dues/internal/sepa"
	"github.com/wsjrdp/dues/internal/service"
	"github.com/wsjrdp/dues/internal/storage"
	"github.com/wsjrdp/dues/internal/storage/mysql"
	"github.com/wsjrdp/dues/internal/storage/sqlite"
)

func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			printUsage()
			return err
		}
		return usageErrorf("%s: %v", fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return usageErrorf("%s: unexpected arguments %v", fs.Name(), fs.Args())
	}
	return nil
}

func runCollect(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	out := fs.String("out", "data", "output directory")
	persist := fs.Bool("persist", false, "book collections after writing")
	prenotify := fs.Bool("prenotify", false, "write pre-notification PDF")
	transfer := fs.Bool("transfer", false, "write transfer-notice PDF")
	metricsFile := fs.String("metrics", "", "Prometheus textfile")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	svc, store, err := newService(ctx, true)
	if err != nil {
		return err
	}
	defer store.Close()

	var m *metrics.Run
	if *metricsFile != "" {
		m = metrics.NewRun()
	}

	res, runErr := svc.Run(ctx, service.RunOptions{
		OutDir:          *out,
		Persist:         *persist,
		PreNotify:       *prenotify,
		TransferNotices: *transfer,
		Metrics:         m,
	})
	if m != nil && res != nil {
		if err := m.WriteTextfile(*metricsFile); err != nil {
			slog.Error("Failed to write metrics", "file", *metricsFile, "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	slog.Info("Run complete",
		"month", res.Month,
		"transactions", res.Batch.Len(),
		"control_sum", sepa.FormatAmount(res.Batch.ControlSumCents),
		"skipped", len(res.Diagnostics.Skipped),
		"zero_balance", len(res.Diagnostics.ZeroBalance),
		"recorded", res.Recorded,
		"already_recorded", res.AlreadyRecorded,
	)
	return nil
}

func runPreview(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	out := fs.String("out", "", "output file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	svc, store, err := newService(ctx, true)
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}

	c, err := svc.Preview(ctx, w)
	if err != nil {
		return err
	}
	slog.Info("Preview written", "transactions", c.Batch.Len(), "sum", sepa.FormatAmount(c.Batch.ControlSumCents))
	return nil
}

func runBalances(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("balances", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	svc, store, err := newService(ctx, false)
	if err != nil {
		return err
	}
	defer store.Close()

	snaps, err := svc.Balances(ctx)
	if err != nil {
		return err
	}

	var total int64
	for _, s := range snaps {
		total += s.BalanceDue
		attrs := []any{
			"participant_id", s.Participant.ID,
			"name", s.Participant.DisplayName(),
			"role", s.Participant.Role,
			"due", sepa.FormatAmount(s.DueThrough),
			"paid", sepa.FormatAmount(-s.Paid),
			"balance", sepa.FormatAmount(s.BalanceDue),
		}
		if s.Overpaid() {
			attrs = append(attrs, "overpaid", sepa.FormatAmount(-(s.DueThrough + s.Paid)))
		}
		slog.Info("Balance", attrs...)
	}
	slog.Info("Balances", "participants", len(snaps), "total", sepa.FormatAmount(total))
	return nil
}

// newService loads the configuration and opens the configured store.
// Without collect, only the settings needed to compute balances are
// required and the service has no batch builder.
func newService(ctx context.Context, collect bool) (*service.DuesService, storage.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ValidateMonth(); err != nil {
		return nil, nil, err
	}
	schedule, err := cfg.Schedule()
	if err != nil {
		return nil, nil, err
	}
	var builder *batch.Builder
	if collect {
		if builder, err = batch.NewBuilder(cfg.BuilderConfig()); err != nil {
			return nil, nil, err
		}
	}

	var store storage.Store
	switch cfg.Database.Driver {
	case config.DriverMySQL:
		store, err = mysql.New(ctx, cfg.Database.MySQL)
	default:
		store, err = sqlite.New(cfg.Database.Path)
	}
	if err != nil {
		return nil, nil, &models.DataAccessError{Op: "open " + cfg.Database.Driver, Err: err}
	}
	slog.Info("Storage initialized", "driver", cfg.Database.Driver)

	month := cfg.Month(schedule)
	svc := service.NewDuesService(store, service.Options{
		Schedule: schedule,
		Builder:  builder,
		Filter:   cfg.RosterFilter(),
		Month:    month,
		Memo:     strings.TrimSpace(cfg.InstallmentLabel + " " + cfg.ProgramName + " SEPA"),
	})
	return svc, store, nil
}
