package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dbsmedya/custrecon/internal/analysis"
	"github.com/dbsmedya/custrecon/internal/eligibility"
	"github.com/dbsmedya/custrecon/internal/graph"
	"github.com/dbsmedya/custrecon/internal/reconcile"
	"github.com/dbsmedya/custrecon/internal/types"
)

// DefaultSampleSize is how many identifiers a summary lists before eliding.
const DefaultSampleSize = 20

var (
	headerStyle  = color.New(color.FgCyan, color.OpBold)
	sectionStyle = color.New(color.FgWhite, color.OpBold)
	goodStyle    = color.New(color.FgGreen)
	warnStyle    = color.New(color.FgYellow)
	badStyle     = color.New(color.FgRed, color.OpBold)
)

// Printer writes human-readable summaries. Colors are only emitted when
// enabled, so output piped to a file stays plain.
type Printer struct {
	w       io.Writer
	colored bool
	num     *message.Printer
}

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer, colored bool) *Printer {
	return &Printer{
		w:       w,
		colored: colored,
		num:     message.NewPrinter(language.English),
	}
}

func (p *Printer) style(s color.Style, text string) string {
	if !p.colored {
		return text
	}
	return s.Sprint(text)
}

// Number formats n with thousands separators.
func (p *Printer) Number(n int64) string {
	return p.num.Sprintf("%d", n)
}

// Header prints a boxed title.
func (p *Printer) Header(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	rule := strings.Repeat("=", runewidth.StringWidth(title)+4)
	fmt.Fprintln(p.w, rule)
	fmt.Fprintf(p.w, "  %s\n", p.style(headerStyle, title))
	fmt.Fprintln(p.w, rule)
}

// Section prints a section title.
func (p *Printer) Section(title string) {
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "[%s]\n", p.style(sectionStyle, title))
	fmt.Fprintln(p.w, strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// Row is one label/value line of a table.
type Row struct {
	Label string
	Value string
}

// Table prints rows with labels padded to a common display width.
func (p *Printer) Table(rows []Row) {
	width := 0
	for _, r := range rows {
		if w := runewidth.StringWidth(r.Label); w > width {
			width = w
		}
	}
	for _, r := range rows {
		fmt.Fprintf(p.w, "  %s  %s\n", runewidth.FillRight(r.Label+":", width+1), r.Value)
	}
}

// Funnel prints an eligibility funnel, one line per stage.
func (p *Printer) Funnel(title string, s eligibility.Snapshot) {
	p.Section(title)
	rows := []Row{
		{"Total records", p.Number(s.Total)},
		{"Missing identifier", p.Number(s.MissingIdentifier)},
	}
	for _, sc := range s.Stages {
		dropped := sc.Reached - sc.Passed
		rows = append(rows, Row{
			Label: "After " + string(sc.Stage),
			Value: fmt.Sprintf("%s (-%s)", p.Number(sc.Passed), p.Number(dropped)),
		})
	}
	rows = append(rows, Row{"Included", p.style(goodStyle, p.Number(s.Included()))})
	p.Table(rows)
}

// Diagnostics prints the distributions collected by a filter run.
func (p *Printer) Diagnostics(d eligibility.DiagnosticsReport) {
	if len(d.Countries) > 0 {
		p.Section("Top countries")
		rows := make([]Row, 0, len(d.Countries))
		for _, c := range d.Countries {
			label := c.Country
			if label == "" {
				label = "(empty)"
			}
			rows = append(rows, Row{label, p.Number(c.Count)})
		}
		p.Table(rows)
	}

	p.Section("Deletion flags")
	p.Table([]Row{
		{"Active", p.Number(d.Flags["ACTIVE"])},
		{"Deleted", p.Number(d.Flags["DELETED"])},
	})

	p.Section("Identifier ranges")
	p.Table([]Row{
		{"Below 1,000,000", p.Number(d.Ranges.Under1M)},
		{"Up to bound", p.Number(d.Ranges.UpToBound)},
		{"Above bound", p.Number(d.Ranges.AboveBound)},
	})

	if d.Traced != nil {
		p.Funnel(fmt.Sprintf("Traced identifiers (%s found)", p.Number(d.TracedFound)), *d.Traced)
	}
	if len(d.FlagSamples) > 0 {
		p.Section("Deletion flag samples")
		for _, s := range d.FlagSamples {
			verdict := p.style(goodStyle, "kept")
			if s.Excluded {
				verdict = p.style(warnStyle, "excluded")
			}
			fmt.Fprintf(p.w, "  %s %s flag=%q %s\n", s.Customer, s.Country, s.RawFlag, verdict)
		}
	}
}

// Diff prints a reconciliation summary and the first sample identifiers.
func (p *Printer) Diff(res *reconcile.Result, sample int) {
	s := res.Summary
	p.Section("Reconciliation")
	missing := p.Number(int64(s.MissingCount))
	if s.MissingCount > 0 {
		missing = p.style(warnStyle, missing)
	} else {
		missing = p.style(goodStyle, missing)
	}
	p.Table([]Row{
		{"Identifiers in source", p.Number(int64(s.TotalInSource))},
		{"Excluded (" + s.ExclusionRule + ")", p.Number(int64(s.ExcludedCount))},
		{"Checked", p.Number(int64(s.FilteredCount))},
		{"Identifiers in index", p.Number(int64(s.TotalInTarget))},
		{"Missing from index", missing},
	})
	p.sample(res.MissingIdentifiers, sample)
}

// Matches prints a match analysis.
func (p *Printer) Matches(r analysis.Report) {
	p.Section("Match analysis")
	p.Table([]Row{
		{"Total records", p.Number(r.TotalRecords)},
		{"Matched records", fmt.Sprintf("%s (%.2f%%)", p.Number(r.MatchedRecords), r.MatchRate*100)},
		{"Unique customers matched", fmt.Sprintf("%s (%.2f%%)", p.Number(r.UniqueCustomersMatched), r.UniqueMatchRate*100)},
		{"Not found in source", p.Number(r.NotFoundInSource)},
		{"Duplicate impact", p.Number(r.DuplicateImpact)},
		{"Distinct customers", p.Number(r.DistinctCustomers)},
		{"Duplicated customers", p.Number(r.DuplicatedCustomers)},
	})

	if len(r.TopDuplicates) > 0 {
		p.Section("Most duplicated")
		rows := make([]Row, 0, len(r.TopDuplicates))
		for _, d := range r.TopDuplicates {
			rows = append(rows, Row{d.ID, p.Number(d.Count) + " rows"})
		}
		p.Table(rows)
	}
}

// Partners prints a partner graph summary.
func (p *Printer) Partners(g *graph.Graph, stats graph.BuildStats) {
	p.Section("Partner graph")
	p.Table([]Row{
		{"Rows read", p.Number(stats.Rows)},
		{"Rows skipped", p.Number(stats.Skipped)},
		{"Customers", p.Number(int64(g.NodeCount()))},
		{"Relationships", p.Number(int64(g.EdgeCount()))},
		{"Mutual relationships", p.Number(int64(mutualPairs(g)))},
		{"Largest relation set", p.Number(int64(largestRelationSet(g)))},
		{"Families", p.Number(int64(len(g.Families())))},
	})
}

// mutualPairs counts customer pairs related in both directions, which is
// what a ship-to partner function row produces.
func mutualPairs(g *graph.Graph) int {
	n := 0
	for _, e := range g.Edges() {
		if e.From != e.To && g.HasEdge(e.To, e.From) {
			n++
		}
	}
	return n / 2
}

func largestRelationSet(g *graph.Graph) int {
	largest := 0
	for _, id := range g.Nodes() {
		if d := g.OutDegree(id); d > largest {
			largest = d
		}
	}
	return largest
}

// Incomplete prints the partial counters of an aborted run. The values are
// labeled so they cannot be mistaken for a result.
func (p *Printer) Incomplete(runErr *types.RunError) {
	fmt.Fprintln(p.w)
	title := "INCOMPLETE: stage " + runErr.Stage
	if runErr.Source != "" {
		title += " (source " + runErr.Source + ")"
	}
	fmt.Fprintln(p.w, p.style(badStyle, title))
	fmt.Fprintf(p.w, "  error: %v\n", runErr.Err)

	keys := runErr.PartialKeys()
	if len(keys) == 0 {
		return
	}
	fmt.Fprintln(p.w, "  partial counters (not a result):")
	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, Row{"  " + k, p.Number(runErr.Partial[k])})
	}
	p.Table(rows)
}

// Artifact prints the path of a written artifact.
func (p *Printer) Artifact(path string) {
	fmt.Fprintf(p.w, "\n%s %s\n", p.style(goodStyle, "written:"), path)
}

func (p *Printer) sample(ids []string, n int) {
	if n <= 0 || len(ids) == 0 {
		return
	}
	shown := ids
	if len(shown) > n {
		shown = shown[:n]
	}
	fmt.Fprintf(p.w, "  %s", strings.Join(shown, ", "))
	if rest := len(ids) - len(shown); rest > 0 {
		fmt.Fprintf(p.w, " ... and %s more", p.Number(int64(rest)))
	}
	fmt.Fprintln(p.w)
}
