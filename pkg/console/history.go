package console

import (
	"fmt"
	"time"

	"github.com/denizgursoy/cukexml/pkg/history"
)

const historyTimeLayout = "2006-01-02 15:04:05"

// PrintRuns prints one line per recorded run, in the order given.
func (p *Printer) PrintRuns(runs []history.Run) {
	if len(runs) == 0 {
		p.writeln("no runs recorded")
		return
	}
	for _, run := range runs {
		p.writeln(fmt.Sprintf("%s  %s  %s  %s  %s",
			p.style(faintStyle, run.RecordedAt.Format(historyTimeLayout)),
			run.Suite,
			p.scenarioCounts(run.Totals),
			run.Totals.Duration.Round(time.Millisecond),
			p.style(faintStyle, run.ID)))
	}
}

// PrintScenarioHistory prints the recorded outcomes of one scenario.
func (p *Printer) PrintScenarioHistory(results []history.ScenarioResult) {
	if len(results) == 0 {
		p.writeln("no results recorded")
		return
	}
	for _, result := range results {
		line := fmt.Sprintf("%s  %s %s  %s",
			p.style(faintStyle, result.RecordedAt.Format(historyTimeLayout)),
			p.outcomeSymbol(result.Outcome),
			result.Outcome,
			result.Duration.Round(time.Millisecond))
		if result.Incomplete {
			line += " " + p.style(failStyle, "(incomplete)")
		}
		p.writeln(line)
	}
}
