package bot

import (
	"go.uber.org/zap"

	"github.com/rustyeddy/futuresbot/journal"
	"github.com/rustyeddy/futuresbot/ledger"
)

// Reporter receives the ledger once the loop has stopped.
type Reporter interface {
	Report(Result, *ledger.Ledger) error
}

// JournalReporter writes an Org report of the run to Path and, when Runs is
// set, stores the run summary there.
type JournalReporter struct {
	Path     string
	Mode     string
	Strategy string
	Runs     journal.RunRecorder
	Log      *zap.Logger
}

func (r JournalReporter) Report(res Result, l *ledger.Ledger) error {
	records := l.Records()
	summary := journal.Summarize(journal.RunSummary{
		RunID:      res.RunID,
		Mode:       r.Mode,
		Symbol:     res.Symbol,
		Strategy:   r.Strategy,
		Started:    res.Started,
		Stopped:    res.Stopped,
		StopReason: string(res.Reason),
	}, records)

	if r.Runs != nil {
		if err := r.Runs.RecordRun(summary); err != nil {
			return err
		}
	}
	if r.Path != "" {
		if err := journal.WriteReport(r.Path, summary, records); err != nil {
			return err
		}
		if r.Log != nil {
			r.Log.Info("report written", zap.String("path", r.Path))
		}
	}
	return nil
}
