package emitter

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/denizgursoy/cukexml/pkg/report"
)

// HTML renders a self-contained page with inline CSS and no external assets.
type HTML struct {
	Title string

	// GeneratedAt is printed under the title when set.
	GeneratedAt time.Time
}

// scenarioView is a scenario together with the feature it belongs to.
type scenarioView struct {
	Feature string
	report.ScenarioReport
}

// tagGroup holds scenarios sharing the same tag combination.
type tagGroup struct {
	TagLabel  string         // e.g. "@smoke, @login" or "Untagged"
	Count     int            // number of scenarios in this tag group
	Duration  time.Duration  // sum of scenario durations in this tag group
	Scenarios []scenarioView // scenarios in this tag group
}

// statusSection holds a top-level section with tag sub-groups.
type statusSection struct {
	Label     string // "Failed Scenarios", "Skipped Scenarios" or "Passed Scenarios"
	CSSClass  string
	Count     int
	Duration  time.Duration
	TagGroups []tagGroup
}

// reportData is the view model passed to the HTML template.
type reportData struct {
	Title       string
	Totals      report.Totals
	GeneratedAt time.Time
	Warnings    []string
	Sections    []statusSection
}

func sumDurations(scenarios []scenarioView) time.Duration {
	var total time.Duration
	for _, s := range scenarios {
		total += s.Totals.Duration
	}
	return total
}

// buildReportData splits scenarios into failed (including errored), skipped
// and passed sections, in that order, and groups each section by tag set.
func buildReportData(title string, generatedAt time.Time, r *report.Report) reportData {
	var failed, skipped, passed []scenarioView
	for _, feature := range r.Features {
		for _, scenario := range feature.Elements {
			view := scenarioView{Feature: feature.Name, ScenarioReport: scenario}
			switch scenario.Outcome {
			case report.OutcomeFailed, report.OutcomeErrored:
				failed = append(failed, view)
			case report.OutcomeSkipped:
				skipped = append(skipped, view)
			default:
				passed = append(passed, view)
			}
		}
	}

	var sections []statusSection
	for _, section := range []struct {
		label, class string
		scenarios    []scenarioView
	}{
		{"Failed Scenarios", "failed", failed},
		{"Skipped Scenarios", "skipped", skipped},
		{"Passed Scenarios", "passed", passed},
	} {
		if len(section.scenarios) == 0 {
			continue
		}
		sections = append(sections, statusSection{
			Label:     section.label,
			CSSClass:  section.class,
			Count:     len(section.scenarios),
			Duration:  sumDurations(section.scenarios),
			TagGroups: groupByTags(section.scenarios),
		})
	}

	return reportData{
		Title:       title,
		Totals:      r.Totals,
		GeneratedAt: generatedAt,
		Warnings:    r.Warnings,
		Sections:    sections,
	}
}

// groupByTags groups scenarios by their sorted tag set.
// Scenarios with no tags go into an "Untagged" group shown last.
func groupByTags(scenarios []scenarioView) []tagGroup {
	groups := make(map[string][]scenarioView)
	for _, s := range scenarios {
		key := tagKey(s.Tags)
		groups[key] = append(groups[key], s)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]tagGroup, 0, len(keys))
	var untagged *tagGroup
	for _, k := range keys {
		scenarios := groups[k]
		tg := tagGroup{TagLabel: k, Count: len(scenarios), Duration: sumDurations(scenarios), Scenarios: scenarios}
		if k == "Untagged" {
			untagged = &tg
		} else {
			result = append(result, tg)
		}
	}
	if untagged != nil {
		result = append(result, *untagged)
	}
	return result
}

func tagKey(tags []string) string {
	if len(tags) == 0 {
		return "Untagged"
	}
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

// stepStatusClass returns the CSS class name for a step.
func stepStatusClass(step report.Step) string {
	switch {
	case step.Result.Failures > 0 || step.Result.Errors > 0:
		return "failed"
	case step.Result.Skipped > 0:
		return "skipped"
	case step.Result.Status == report.StatusPassed:
		return "passed"
	default:
		return "unknown"
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.0fµs", float64(d)/float64(time.Microsecond))
	}
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// embeddingSource builds a data URL for image attachments. Attachment data
// is already base64 encoded by the engine.
func embeddingSource(e report.Embedding) template.URL {
	return template.URL("data:" + e.MimeType + ";base64," + e.Data)
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"statusClass": stepStatusClass,
	"summaryClass": func(t report.Totals) string {
		if t.Failed > 0 || t.Errored > 0 {
			return "has-failures"
		}
		return "all-passed"
	},
	"statusSymbol": func(step report.Step) string {
		switch stepStatusClass(step) {
		case "passed":
			return "\u2713"
		case "failed":
			return "\u2717"
		case "skipped":
			return "\u2013"
		default:
			return "?"
		}
	},
	"formatDuration": formatDuration,
	"stepDuration": func(d *time.Duration) string {
		if d == nil {
			return ""
		}
		return formatDuration(*d)
	},
	"isImage": func(e report.Embedding) bool {
		return strings.HasPrefix(e.MimeType, "image/")
	},
	"embeddingSource": embeddingSource,
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04:05")
	},
}).Parse(htmlPage))

// Emit renders the page.
func (e *HTML) Emit(w io.Writer, r *report.Report) error {
	title := e.Title
	if title == "" {
		title = DefaultTitle
	}
	if err := htmlTemplate.Execute(w, buildReportData(title, e.GeneratedAt, r)); err != nil {
		return fmt.Errorf("could not render HTML report: %w", err)
	}
	return nil
}

const htmlPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} Report</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Oxygen,
                 Ubuntu, Cantarell, "Fira Sans", "Droid Sans", "Helvetica Neue", sans-serif;
    background: #f8f9fa; color: #212529; line-height: 1.6; padding: 2rem;
  }
  h1 { font-size: 1.5rem; margin-bottom: 0.25rem; color: #212529; font-weight: 700; }
  .executed-at { font-size: 0.8rem; color: #868e96; margin-bottom: 1.5rem; }

  .summary {
    display: flex; gap: 1rem; flex-wrap: wrap;
    margin-bottom: 2rem; padding: 1rem 1.25rem; background: #fff;
    border-radius: 10px; border: 1px solid #e9ecef;
    box-shadow: 0 1px 3px rgba(0,0,0,0.04);
  }
  .summary.all-passed { border: 2px solid #2b8a3e; background: #f6fef7; }
  .summary.has-failures { border: 2px solid #c92a2a; background: #fff5f5; }
  .summary-item { text-align: center; min-width: 90px; }
  .summary-item .number { font-size: 1.8rem; font-weight: 700; }
  .summary-item .label {
    font-size: 0.7rem; text-transform: uppercase; letter-spacing: 0.05em; color: #868e96;
  }
  .number.green  { color: #2b8a3e; }
  .number.red    { color: #c92a2a; }
  .number.yellow { color: #e67700; }
  .number.blue   { color: #1864ab; }

  .warnings {
    margin-bottom: 2rem; padding: 0.75rem 1rem; background: #fff9db;
    border: 1px solid #ffe066; border-radius: 8px; font-size: 0.8rem;
  }
  .warnings li { margin-left: 1rem; }

  .section { margin-bottom: 2rem; }
  .section-header {
    font-size: 1.1rem; font-weight: 700; margin-bottom: 0.75rem;
    padding-bottom: 0.4rem; border-bottom: 2px solid #dee2e6;
    display: flex; align-items: center; gap: 0.5rem;
  }
  .section-header .dot { width: 10px; height: 10px; border-radius: 50%; display: inline-block; }
  .section-header .section-meta { font-size: 0.8rem; font-weight: 500; color: #868e96; }
  .section.failed .section-header { color: #c92a2a; }
  .section.failed .dot { background: #c92a2a; }
  .section.skipped .section-header { color: #e67700; }
  .section.skipped .dot { background: #e67700; }
  .section.passed .section-header { color: #2b8a3e; }
  .section.passed .dot { background: #2b8a3e; }

  .tag-group { margin-bottom: 1.25rem; margin-left: 0.25rem; }
  .tag-group-label {
    font-size: 0.8rem; font-weight: 600; color: #495057;
    margin-bottom: 0.4rem; padding-left: 0.25rem;
    display: flex; align-items: center; gap: 0.4rem;
  }
  .tag-group-label .tag-icon { color: #868e96; }
  .tag-group-meta { font-size: 0.75rem; font-weight: 400; color: #868e96; }

  .toggle-bar { display: flex; gap: 0.5rem; margin-bottom: 1rem; }
  .toggle-btn {
    background: #fff; border: 1px solid #dee2e6; border-radius: 6px;
    padding: 0.3rem 0.75rem; font-size: 0.75rem; color: #495057;
    cursor: pointer; font-weight: 500;
  }
  .toggle-btn:hover { background: #f1f3f5; border-color: #adb5bd; }

  .scenario {
    margin-bottom: 0.5rem; background: #fff; border-radius: 8px;
    overflow: hidden; border: 1px solid #e9ecef;
    box-shadow: 0 1px 2px rgba(0,0,0,0.03);
  }
  .scenario.passed  { border-left: 4px solid #69db7c; }
  .scenario.failed, .scenario.errored { border-left: 4px solid #ff6b6b; }
  .scenario.skipped { border-left: 4px solid #ffd43b; }

  .scenario-header {
    display: flex; justify-content: space-between; align-items: center;
    padding: 0.6rem 1rem; cursor: pointer; user-select: none;
  }
  .scenario-header:hover { background: #f1f3f5; }
  .scenario-name { font-weight: 600; font-size: 0.9rem; color: #212529; }
  .scenario-meta { display: flex; gap: 0.75rem; align-items: center; font-size: 0.78rem; color: #868e96; }
  .feature-label { color: #495057; font-size: 0.78rem; }
  .tag {
    background: #e9ecef; border-radius: 4px; padding: 0.1rem 0.45rem;
    font-size: 0.68rem; color: #495057; font-weight: 500;
  }
  .incomplete { color: #c92a2a; font-size: 0.72rem; font-weight: 600; }

  .steps {
    padding: 0.5rem 1rem 0.75rem 1rem; display: none;
    background: #1e1f22; border-radius: 0 0 6px 6px;
  }
  .scenario.open .steps { display: block; }

  .step {
    display: flex; align-items: baseline; gap: 0.5rem; padding: 0.2rem 0;
    font-family: "JetBrains Mono", "Fira Code", "Cascadia Code", "SF Mono", monospace;
    font-size: 0.82rem;
  }
  .step.hidden { opacity: 0.6; }
  .step-symbol { width: 1.2rem; text-align: center; flex-shrink: 0; font-weight: 700; }
  .step-symbol.passed  { color: #32cd32; }
  .step-symbol.failed  { color: #ff4444; }
  .step-symbol.skipped { color: #e6b800; }
  .step-keyword { color: #CF8E6D; font-weight: 600; white-space: pre; }
  .step-text { color: #BCBEC4; }
  .step-text.skipped, .step-keyword.skipped { color: #6F737A; }
  .step-duration { margin-left: auto; color: #6F737A; font-size: 0.72rem; white-space: nowrap; }
  .step-argument, .step-error, .step-embedding {
    border-radius: 4px; padding: 0.3rem 0.5rem; margin: 0.15rem 0 0.15rem 1.7rem;
    font-size: 0.78rem; white-space: pre-wrap;
    font-family: "JetBrains Mono", "Fira Code", "Cascadia Code", "SF Mono", monospace;
  }
  .step-argument { color: #BCBEC4; background: #2b2d30; }
  .step-error { color: #ff4444; background: #2c1a1a; border: 1px solid #4a2020; }
  .step-embedding { color: #BCBEC4; background: #2b2d30; }
  .step-embedding img { max-width: 100%; }

  .chevron { transition: transform 0.2s; font-size: 0.7rem; color: #adb5bd; }
  .scenario.open .chevron { transform: rotate(90deg); }

  .empty-msg { color: #868e96; font-style: italic; padding: 1rem 0; text-align: center; }

  @media (max-width: 600px) {
    body { padding: 0.75rem; }
    .summary { flex-direction: column; gap: 0.5rem; }
  }
</style>
</head>
<body>
<h1>{{.Title}} Report</h1>
{{if not .GeneratedAt.IsZero}}<div class="executed-at">Generated at {{formatTime .GeneratedAt}}</div>{{end}}

<div class="summary {{summaryClass .Totals}}">
  <div class="summary-item"><div class="number blue">{{.Totals.Scenarios}}</div><div class="label">Scenarios</div></div>
  <div class="summary-item"><div class="number green">{{.Totals.Passed}}</div><div class="label">Passed</div></div>
  <div class="summary-item"><div class="number red">{{.Totals.Failed}}</div><div class="label">Failed</div></div>
  <div class="summary-item"><div class="number red">{{.Totals.Errored}}</div><div class="label">Errored</div></div>
  <div class="summary-item"><div class="number yellow">{{.Totals.Skipped}}</div><div class="label">Skipped</div></div>
  <div class="summary-item"><div class="number blue">{{.Totals.Steps}}</div><div class="label">Steps</div></div>
  <div class="summary-item"><div class="number blue">{{formatDuration .Totals.Duration}}</div><div class="label">Duration</div></div>
</div>

{{if .Warnings}}
<div class="warnings"><strong>Warnings</strong><ul>{{range .Warnings}}<li>{{.}}</li>{{end}}</ul></div>
{{end}}

{{if not .Sections}}
<div class="empty-msg">No scenarios were executed.</div>
{{else}}
<div class="toggle-bar">
  <button class="toggle-btn" onclick="expandAll()">Expand All</button>
  <button class="toggle-btn" onclick="collapseAll()">Collapse All</button>
</div>
{{end}}

{{range .Sections}}
<div class="section {{.CSSClass}}">
  <div class="section-header"><span class="dot"></span> {{.Label}} <span class="section-meta">{{.Count}} scenarios, {{formatDuration .Duration}}</span></div>
  {{range .TagGroups}}
  <div class="tag-group">
    <div class="tag-group-label"><span class="tag-icon">#</span> {{.TagLabel}} <span class="tag-group-meta">({{.Count}} scenarios, {{formatDuration .Duration}})</span></div>
    {{range .Scenarios}}
    <div class="scenario {{.Outcome}}" id="{{.ID}}">
      <div class="scenario-header" onclick="this.parentElement.classList.toggle('open')">
        <div>
          <span class="feature-label">{{.Feature}}</span>
          <br>
          <span class="scenario-name">{{.Name}}</span>
          {{range .Tags}}<span class="tag">{{.}}</span> {{end}}
          {{if .Incomplete}}<span class="incomplete">incomplete: {{.Problem}}</span>{{end}}
        </div>
        <div class="scenario-meta">
          <span>{{formatDuration .Totals.Duration}}</span>
          <span class="chevron">&#9654;</span>
        </div>
      </div>
      <div class="steps">
        {{range .Steps}}
        <div class="step{{if .Hidden}} hidden{{end}}">
          <span class="step-symbol {{statusClass .}}">{{statusSymbol .}}</span>
          <span class="step-keyword {{statusClass .}}">{{.Keyword}}</span>
          <span class="step-text {{statusClass .}}">{{.Name}}</span>
          <span class="step-duration">{{stepDuration .Result.Duration}}</span>
        </div>
        {{range .Arguments}}<div class="step-argument">{{.}}</div>{{end}}
        {{if .Result.ErrorMessage}}<div class="step-error">{{.Result.ErrorMessage}}</div>{{end}}
        {{range .Embeddings}}<div class="step-embedding">{{if isImage .}}<img src="{{embeddingSource .}}" alt="{{.MimeType}}">{{else}}{{.MimeType}}: {{.Data}}{{end}}</div>{{end}}
        {{end}}
      </div>
    </div>
    {{end}}
  </div>
  {{end}}
</div>
{{end}}

<script>
document.querySelectorAll('.scenario.failed, .scenario.errored').forEach(function(el) { el.classList.add('open'); });

function expandAll() {
  document.querySelectorAll('.scenario').forEach(function(el) { el.classList.add('open'); });
}
function collapseAll() {
  document.querySelectorAll('.scenario').forEach(function(el) { el.classList.remove('open'); });
}
</script>
</body>
</html>
`
