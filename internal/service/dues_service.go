// Package service wires the roster and ledger feeds through the calculator
// and batch builder and writes the results of a collection run.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/wsjrdp/dues/internal/batch"
	"github.com/wsjrdp/dues/internal/calculator"
	"github.com/wsjrdp/dues/internal/metrics"
	"github.com/wsjrdp/dues/internal/models"
	"github.com/wsjrdp/dues/internal/report"
	"github.com/wsjrdp/dues/internal/sepa"
	"github.com/wsjrdp/dues/internal/storage"
	"github.com/wsjrdp/dues/internal/tariff"
)

// Options configure a DuesService.
type Options struct {
	Schedule *tariff.Schedule

	// Builder may be nil when only balances are computed.
	Builder *batch.Builder
	Filter  storage.RosterFilter

	// Month is the month offset collected for.
	Month int

	// Memo is booked with every recorded collection.
	Memo string

	// Now defaults to time.Now.
	Now func() time.Time
}

// DuesService runs collections against a store.
type DuesService struct {
	store  storage.Store
	opts   Options
	writer *sepa.Writer
}

// NewDuesService creates a new DuesService with the given storage backend.
func NewDuesService(store storage.Store, opts Options) *DuesService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &DuesService{store: store, opts: opts, writer: sepa.NewWriter()}
}

// Computation is the in-memory result of a run before anything is written.
type Computation struct {
	Month       int
	Roster      []models.Participant
	Snapshots   []calculator.Snapshot
	Batch       *models.Batch
	Diagnostics models.Diagnostics
}

// Compute fetches the roster and ledger and builds the batch.
func (s *DuesService) Compute(ctx context.Context) (*Computation, error) {
	if s.opts.Builder == nil {
		return nil, errors.New("no batch builder configured")
	}
	snapshots, roster, err := s.balances(ctx)
	if err != nil {
		return nil, err
	}

	b, diags := s.opts.Builder.Build(snapshots)
	return &Computation{
		Month:       s.opts.Month,
		Roster:      roster,
		Snapshots:   snapshots,
		Batch:       b,
		Diagnostics: diags,
	}, nil
}

// Balances returns every eligible participant's balance for the month.
func (s *DuesService) Balances(ctx context.Context) ([]calculator.Snapshot, error) {
	snapshots, _, err := s.balances(ctx)
	return snapshots, err
}

func (s *DuesService) balances(ctx context.Context) ([]calculator.Snapshot, []models.Participant, error) {
	roster, err := s.store.FetchRoster(ctx, s.opts.Filter)
	if err != nil {
		return nil, nil, &models.DataAccessError{Op: "fetch roster", Err: err}
	}
	ledger, err := s.store.FetchLedger(ctx)
	if err != nil {
		return nil, nil, &models.DataAccessError{Op: "fetch ledger", Err: err}
	}
	slog.Info("Data fetched", "participants", len(roster), "ledger_entries", len(ledger), "month", s.opts.Month)

	snapshots, err := calculator.CalculateBalances(s.opts.Schedule, roster, ledger, s.opts.Month)
	if err != nil {
		return nil, nil, err
	}
	return snapshots, roster, nil
}

// RunOptions select the outputs of Run.
type RunOptions struct {
	OutDir          string
	Persist         bool
	PreNotify       bool
	TransferNotices bool
	Metrics         *metrics.Run
}

// RunResult lists what a run produced.
type RunResult struct {
	*Computation

	// BatchFile is empty when there was nothing to collect.
	BatchFile       string
	DiagnosticsFile string
	PreNotifyFile   string
	TransferFile    string

	// Recorded counts collections booked by this run. AlreadyRecorded
	// counts those whose reference was found in the ledger.
	Recorded        int
	AlreadyRecorded int
}

// Run computes the batch and writes it with its diagnostics into
// opts.OutDir. The batch file is read back and checked against the batch
// before anything else happens. With Persist set, every transaction is
// booked in the store after the files are written. Booking failures are
// collected and returned together; they do not undo the files.
func (s *DuesService) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	started := s.opts.Now()

	c, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	res := &RunResult{Computation: c}

	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	prefix := filepath.Join(opts.OutDir, started.Format("20060102-150405"))

	if c.Batch.Len() > 0 {
		res.BatchFile = prefix + "--SEPA.xml"
		if err := writeFile(res.BatchFile, func(w io.Writer) error {
			return s.writer.WriteBatch(w, c.Batch)
		}); err != nil {
			return nil, err
		}
		if err := verifyBatchFile(res.BatchFile, c.Batch); err != nil {
			return nil, err
		}
		slog.Info("Batch written", "file", res.BatchFile, "message_id", c.Batch.MessageID,
			"transactions", c.Batch.Len(), "control_sum", sepa.FormatAmount(c.Batch.ControlSumCents))
	} else {
		slog.Warn("No transactions, batch file not written")
	}

	res.DiagnosticsFile = prefix + "--diagnostics.csv"
	if err := writeFile(res.DiagnosticsFile, func(w io.Writer) error {
		return report.WriteDiagnosticsCSV(w, c.Diagnostics)
	}); err != nil {
		return nil, err
	}
	slog.Info("Diagnostics written", "file", res.DiagnosticsFile,
		"skipped", len(c.Diagnostics.Skipped), "zero_balance", len(c.Diagnostics.ZeroBalance))

	if opts.PreNotify && c.Batch.Len() > 0 {
		res.PreNotifyFile = prefix + "--pre-notifications.pdf"
		if err := writeFile(res.PreNotifyFile, func(w io.Writer) error {
			return report.WritePreNotifications(w, c.Batch)
		}); err != nil {
			return nil, err
		}
	}

	if opts.TransferNotices && len(report.TransferCandidates(c.Diagnostics)) > 0 {
		res.TransferFile = prefix + "--transfer-notices.pdf"
		if err := writeFile(res.TransferFile, func(w io.Writer) error {
			return report.WriteTransferNotices(w, c.Batch.Creditor, c.Diagnostics)
		}); err != nil {
			return nil, err
		}
	}

	var persistErr error
	if opts.Persist {
		res.Recorded, res.AlreadyRecorded, persistErr = s.record(ctx, c.Batch, opts.Metrics)
	}

	if opts.Metrics != nil {
		opts.Metrics.ObserveBatch(c.Batch)
		opts.Metrics.ObserveDiagnostics(c.Diagnostics)
		opts.Metrics.Finish(started, s.opts.Now())
	}

	return res, persistErr
}

// Preview writes the collection preview CSV without writing a batch.
func (s *DuesService) Preview(ctx context.Context, w io.Writer) (*Computation, error) {
	c, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := report.WritePreviewCSV(w, c.Batch, report.ParticipantIndex(c.Roster)); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *DuesService) record(ctx context.Context, b *models.Batch, m *metrics.Run) (recorded, already int, err error) {
	var errs []error
	for _, tx := range b.Transactions {
		entry := models.LedgerEntry{
			ParticipantID: tx.ParticipantID,
			AmountCents:   -tx.AmountCents,
			CreatedAt:     s.opts.Now().Unix(),
			Memo:          s.opts.Memo,
			Reference:     tx.EndToEndID,
		}
		err := s.store.RecordCollection(ctx, tx.ParticipantID, storage.StatusCollected, entry)
		if errors.Is(err, storage.ErrAlreadyRecorded) {
			slog.Warn("Collection already recorded, not booked again",
				"participant_id", tx.ParticipantID, "reference", tx.EndToEndID)
			if m != nil {
				m.CollectionAlreadyRecorded()
			}
			already++
			continue
		}
		if m != nil {
			m.CollectionRecorded(err)
		}
		if err != nil {
			slog.Error("Failed to record collection", "participant_id", tx.ParticipantID, "error", err)
			errs = append(errs, fmt.Errorf("participant %d: %w", tx.ParticipantID, err))
			continue
		}
		recorded++
	}
	slog.Info("Collections recorded", "recorded", recorded, "already_recorded", already, "failed", len(errs))

	if len(errs) > 0 {
		return recorded, already, &models.DataAccessError{Op: "record collections", Err: errors.Join(errs...)}
	}
	return recorded, already, nil
}

// verifyBatchFile reads the written file back and compares it with b.
func verifyBatchFile(path string, b *models.Batch) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to reopen %s: %w", path, err)
	}
	defer f.Close()

	summary, err := sepa.ReadSummary(f)
	if err != nil {
		return fmt.Errorf("failed to verify %s: %w", path, err)
	}
	switch {
	case summary.MessageID != b.MessageID:
		return fmt.Errorf("failed to verify %s: message id %q, expected %q", path, summary.MessageID, b.MessageID)
	case summary.NumTransactions != b.Len():
		return fmt.Errorf("failed to verify %s: %d transactions, expected %d", path, summary.NumTransactions, b.Len())
	case summary.ControlSumCents != b.ControlSumCents:
		return fmt.Errorf("failed to verify %s: control sum %d, expected %d", path, summary.ControlSumCents, b.ControlSumCents)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
