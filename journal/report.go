package journal

import (
	"bytes"
	"io"
	"os"
	"text/template"
	"time"
)

// RunSummary mirrors the runs table.
type RunSummary struct {
	RunID      string
	Mode       string
	Symbol     string
	Strategy   string
	Started    time.Time
	Stopped    time.Time
	Trades     int
	Wins       int
	Losses     int
	NetPnL     float64
	StopReason string
}

// Summarize fills the trade counts and net PnL of r from trades. A trade
// with positive PnL is a win, negative a loss; opening trades count as
// neither.
func Summarize(r RunSummary, trades []TradeRecord) RunSummary {
	r.Trades = len(trades)
	r.Wins, r.Losses, r.NetPnL = 0, 0, 0
	for _, t := range trades {
		r.NetPnL += t.PnL
		switch {
		case t.PnL > 0:
			r.Wins++
		case t.PnL < 0:
			r.Losses++
		}
	}
	return r
}

type reportView struct {
	RunSummary
	PnLTable    string
	TradeBlocks string
}

var reportFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now().UTC()
		}
		return t.UTC()
	},
}

var reportTmpl = template.Must(template.New("report").Funcs(reportFuncs).Parse(ReportOrgTemplate))

// Report renders the run summary, the PnL table and every trade as one Org
// document.
func Report(w io.Writer, r RunSummary, trades []TradeRecord) error {
	r = Summarize(r, trades)
	return reportTmpl.Execute(w, reportView{
		RunSummary:  r,
		PnLTable:    FormatPnLOrg(trades),
		TradeBlocks: FormatTradesOrg(trades),
	})
}

// WriteReport writes Report to path.
func WriteReport(path string, r RunSummary, trades []TradeRecord) error {
	buf := new(bytes.Buffer)
	if err := Report(buf, r, trades); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

const ReportOrgTemplate = `* RUN: {{.Strategy}} {{.Symbol}} ({{.Mode}})
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{.Strategy}}
:SYMBOL:      {{.Symbol}}
:MODE:        {{.Mode}}
:STARTED:     [{{(orTime .Started).Format "2006-01-02 Mon 15:04"}}]
:STOPPED:     [{{(orTime .Stopped).Format "2006-01-02 Mon 15:04"}}]
:STOP_REASON: {{if .StopReason}}{{.StopReason}}{{else}}(unknown){{end}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:NET_PNL:     {{printf "%.2f" .NetPnL}}
:END:

** Cumulative PnL
{{.PnLTable}}
** Trades
{{if .TradeBlocks}}{{.TradeBlocks}}{{else}}- none
{{end}}`
