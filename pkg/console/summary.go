// Package console prints a finalized report to a terminal.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/denizgursoy/cukexml/pkg/report"
)

// Symbols for scenario outcomes
const (
	symbolPass  = "✓"
	symbolFail  = "✗"
	symbolError = "!"
	symbolSkip  = "-"
)

var (
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	keywordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CF8E6D"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

// Printer writes a coloured or plain summary of a report.
type Printer struct {
	w         io.Writer
	useColors bool
}

func NewPrinter(w io.Writer, useColors bool) *Printer {
	return &Printer{w: w, useColors: useColors}
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if p.useColors {
		return s.Render(text)
	}
	return text
}

func (p *Printer) writeln(s string) {
	fmt.Fprintln(p.w, s)
}

// PrintReport prints every feature with its scenarios, the first error line
// of each failing step, any warnings and the summary.
func (p *Printer) PrintReport(r *report.Report) {
	for _, feature := range r.Features {
		p.writeln("")
		p.writeln(p.style(keywordStyle, keywordOr(feature.Keyword, "Feature")+":") + " " + feature.Name + " " + p.style(faintStyle, feature.URI))
		for _, scenario := range feature.Elements {
			p.printScenario(scenario)
		}
	}

	if len(r.Warnings) > 0 {
		p.writeln("")
		for _, warning := range r.Warnings {
			p.writeln(p.style(skipStyle, "warning:") + " " + warning)
		}
	}

	p.PrintSummary(r.Totals)
}

func (p *Printer) printScenario(scenario report.ScenarioReport) {
	line := fmt.Sprintf("  %s %s", p.outcomeSymbol(scenario.Outcome), scenario.Name)
	if scenario.Incomplete {
		line += " " + p.style(failStyle, "(incomplete)")
	}
	p.writeln(line)

	for _, step := range scenario.Steps {
		if step.Result.Failures == 0 && step.Result.Errors == 0 {
			continue
		}
		message := firstLine(step.Result.ErrorMessage)
		if message == "" {
			message = string(step.Result.Status)
		}
		p.writeln(fmt.Sprintf("      %s%s: %s", p.style(keywordStyle, step.Keyword), step.Name, p.style(failStyle, message)))
	}
}

func (p *Printer) outcomeSymbol(outcome report.Outcome) string {
	switch outcome {
	case report.OutcomePassed:
		return p.style(passStyle, symbolPass)
	case report.OutcomeFailed:
		return p.style(failStyle, symbolFail)
	case report.OutcomeErrored:
		return p.style(failStyle, symbolError)
	default:
		return p.style(skipStyle, symbolSkip)
	}
}

// PrintSummary prints the scenario and step counts.
func (p *Printer) PrintSummary(totals report.Totals) {
	p.writeln("")

	p.writeln(p.scenarioCounts(totals))

	stepLine := fmt.Sprintf("%d step(s)", totals.Steps)
	if totals.Steps > 0 {
		parts := []string{}
		if passed := totals.Steps - totals.StepFailures - totals.StepErrors - totals.StepSkipped; passed > 0 {
			parts = append(parts, p.style(passStyle, fmt.Sprintf("%d ok", passed)))
		}
		if totals.StepFailures > 0 {
			parts = append(parts, p.style(failStyle, fmt.Sprintf("%d failed", totals.StepFailures)))
		}
		if totals.StepErrors > 0 {
			parts = append(parts, p.style(failStyle, fmt.Sprintf("%d errored", totals.StepErrors)))
		}
		if totals.StepSkipped > 0 {
			parts = append(parts, p.style(skipStyle, fmt.Sprintf("%d skipped", totals.StepSkipped)))
		}
		stepLine += " (" + strings.Join(parts, ", ") + ")"
	}
	p.writeln(stepLine)
	p.writeln(totals.Duration.String())
}

func (p *Printer) scenarioCounts(totals report.Totals) string {
	line := fmt.Sprintf("%d scenario(s)", totals.Scenarios)
	if totals.Scenarios == 0 {
		return line
	}

	parts := []string{}
	if totals.Passed > 0 {
		parts = append(parts, p.style(passStyle, fmt.Sprintf("%d passed", totals.Passed)))
	}
	if totals.Failed > 0 {
		parts = append(parts, p.style(failStyle, fmt.Sprintf("%d failed", totals.Failed)))
	}
	if totals.Errored > 0 {
		parts = append(parts, p.style(failStyle, fmt.Sprintf("%d errored", totals.Errored)))
	}
	if totals.Skipped > 0 {
		parts = append(parts, p.style(skipStyle, fmt.Sprintf("%d skipped", totals.Skipped)))
	}
	return line + " (" + strings.Join(parts, ", ") + ")"
}

func keywordOr(keyword, fallback string) string {
	if keyword == "" {
		return fallback
	}
	return keyword
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return line
}
