// Package metrics records the outcome of a collection run in a Prometheus
// registry. Runs are short-lived, so the registry is written to a textfile
// for the node exporter instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wsjrdp/dues/internal/models"
)

const (
	namespace         = "dues"
	unspecifiedReason = "unspecified"
)

// Run holds the metrics of one collection run.
type Run struct {
	registry *prometheus.Registry

	transactions    *prometheus.GaugeVec
	amountCents     *prometheus.GaugeVec
	diagnostics     *prometheus.GaugeVec
	recorded        prometheus.Counter
	alreadyRecorded prometheus.Counter
	recordErrors    prometheus.Counter
	lastRun         prometheus.Gauge
	duration        prometheus.Gauge
}

// NewRun creates a fresh registry with all run metrics registered.
func NewRun() *Run {
	r := &Run{
		registry: prometheus.NewRegistry(),
		transactions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_transactions",
			Help:      "Direct debit transactions in the last batch by sequence type.",
		}, []string{"sequence_type"}),
		amountCents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_amount_cents",
			Help:      "Sum of the last batch in cents by sequence type.",
		}, []string{"sequence_type"}),
		diagnostics: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "diagnostics",
			Help:      "Participants left out of the last batch by kind and reason.",
		}, []string{"kind", "reason"}),
		recorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_recorded_total",
			Help:      "Collections booked into the ledger.",
		}),
		alreadyRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_already_recorded_total",
			Help:      "Collections not booked because their reference was booked before.",
		}),
		recordErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_record_errors_total",
			Help:      "Collections that could not be booked.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	r.registry.MustRegister(r.transactions, r.amountCents, r.diagnostics,
		r.recorded, r.alreadyRecorded, r.recordErrors, r.lastRun, r.duration)
	return r
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveBatch records transaction counts and sums of b.
func (r *Run) ObserveBatch(b *models.Batch) {
	for _, seq := range []models.SequenceType{models.SequenceFirst, models.SequenceRecurring} {
		var sum int64
		txs := b.BySequence(seq)
		for _, tx := range txs {
			sum += tx.AmountCents
		}
		r.transactions.WithLabelValues(string(seq)).Set(float64(len(txs)))
		r.amountCents.WithLabelValues(string(seq)).Set(float64(sum))
	}
}

// ObserveDiagnostics counts left-out participants by kind and reason code.
// A participant failing several checks counts once per code.
func (r *Run) ObserveDiagnostics(d models.Diagnostics) {
	for _, diag := range d.All() {
		codes := diag.Codes
		if len(codes) == 0 {
			codes = []string{unspecifiedReason}
		}
		for _, code := range codes {
			r.diagnostics.WithLabelValues(string(diag.Kind), code).Inc()
		}
	}
}

// CollectionRecorded counts a booked collection, or a failed one.
func (r *Run) CollectionRecorded(err error) {
	if err != nil {
		r.recordErrors.Inc()
		return
	}
	r.recorded.Inc()
}

// CollectionAlreadyRecorded counts a collection whose reference was booked
// before.
func (r *Run) CollectionAlreadyRecorded() {
	r.alreadyRecorded.Inc()
}

// Finish stamps the run's end time and duration.
func (r *Run) Finish(started, finished time.Time) {
	r.lastRun.Set(float64(finished.Unix()))
	r.duration.Set(finished.Sub(started).Seconds())
}

// WriteTextfile writes all metrics in the text exposition format.
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
