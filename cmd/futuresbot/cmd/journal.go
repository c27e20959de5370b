package cmd

import (
	"fmt"
	"time"

	"github.com/rustyeddy/futuresbot/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display trade journal records from a SQLite database.

Subcommands:
  list    - List every trade
  trade   - Get details of a specific trade by ID
  day     - List trades on a specific UTC day
  report  - Render the PnL report for the journal or one run

Examples:
  futuresbot journal list
  futuresbot journal trade <trade-id>
  futuresbot journal day 2024-11-04
  futuresbot journal report --run <run-id> -o report.org`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every trade",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades on a specific UTC day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the cumulative PnL report",
	Args:  cobra.NoArgs,
	RunE:  runJournalReport,
}

var (
	journalDBPath string
	reportRunID   string
	reportOutput  string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalReportCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./futuresbot.sqlite", "path to SQLite journal DB")
	journalReportCmd.Flags().StringVar(&reportRunID, "run", "", "limit the report to one run ID")
	journalReportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "write the report to a file instead of stdout")
}

func openJournal() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListTrades()
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), journal.FormatPnLOrg(recs))
	return nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradeOrg(rec))
	return nil
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	start, end, err := dayBounds(time.UTC, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListTradesBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatTradesOrg(recs))
	return nil
}

func runJournalReport(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	summary := journal.RunSummary{Mode: "journal"}
	var recs []journal.TradeRecord
	if reportRunID != "" {
		summary, err = j.GetRun(reportRunID)
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		recs, err = j.ListTradesBetween(summary.Started, summary.Stopped.Add(time.Second))
	} else {
		recs, err = j.ListTrades()
		if len(recs) > 0 {
			summary.Symbol = recs[0].Symbol
			summary.Started = recs[0].Time
			summary.Stopped = recs[len(recs)-1].Time
		}
	}
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	if reportOutput != "" {
		if err := journal.WriteReport(reportOutput, summary, recs); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Report written: %s\n", reportOutput)
		return nil
	}
	return journal.Report(cmd.OutOrStdout(), summary, recs)
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
