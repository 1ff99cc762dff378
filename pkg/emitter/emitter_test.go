package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	messages "github.com/cucumber/messages/go/v21"
	"github.com/denizgursoy/cukexml/pkg/document"
	"github.com/denizgursoy/cukexml/pkg/gherkin_parser"
	"github.com/denizgursoy/cukexml/pkg/report"
	"github.com/stretchr/testify/require"
)

func duration(d time.Duration) *time.Duration {
	return &d
}

func sampleReport() *report.Report {
	passed := report.ScenarioReport{
		ID:      "paying-by-card",
		Name:    "Paying by card",
		Keyword: "Scenario",
		Line:    9,
		Tags:    []string{"@shop", "@smoke"},
		Outcome: report.OutcomePassed,
		Totals:  report.Totals{Scenarios: 1, Passed: 1, Steps: 2, Duration: 3 * time.Millisecond},
		Steps: []report.Step{
			{Keyword: "Before", Hidden: true},
			{
				Keyword:   "When ",
				Name:      "the customer pays by card",
				Line:      12,
				Arguments: []string{"| card | amount |\n| visa | 10     |"},
				Match:     &report.Match{Location: "steps/payment.go:17"},
				Result:    report.Result{Status: report.StatusPassed, Duration: duration(3 * time.Millisecond)},
				Embeddings: []report.Embedding{
					{Data: "iVBORw0KGgo=", MimeType: "image/png"},
					{Data: "receipt <printed>", MimeType: "text/plain"},
				},
			},
		},
	}
	failed := report.ScenarioReport{
		ID:      "applying-a-voucher",
		Name:    "Applying a voucher",
		Keyword: "Scenario",
		Line:    15,
		Tags:    []string{"@shop"},
		Outcome: report.OutcomeFailed,
		Totals:  report.Totals{Scenarios: 1, Failed: 1, Steps: 1, StepFailures: 1, Duration: time.Millisecond},
		Steps: []report.Step{
			{
				Keyword: "Then ",
				Name:    "the total is 90",
				Line:    17,
				Result: report.Result{
					Status:       report.StatusFailed,
					Duration:     duration(time.Millisecond),
					Failures:     1,
					ErrorName:    "AssertionError",
					ErrorMessage: "AssertionError: expected 90, got 100\n  at steps/cart.go:40",
				},
			},
		},
	}
	incomplete := report.ScenarioReport{
		ID:         "refund-with-receipt",
		Name:       "Refund with receipt",
		Keyword:    "Scenario",
		Tags:       []string{},
		Steps:      []report.Step{},
		Outcome:    report.OutcomeErrored,
		Totals:     report.Totals{Scenarios: 1, Errored: 1},
		Incomplete: true,
		Problem:    "features/refunds.feature: no pickle step at line 99",
	}

	checkout := report.FeatureReport{
		ID:          "checkout",
		URI:         "features/checkout.feature",
		Name:        "Checkout",
		Keyword:     "Feature",
		Description: "Buying things from the cart.",
		Line:        2,
		Tags:        []string{"@shop"},
		Elements:    []report.ScenarioReport{passed, failed},
		Totals:      report.Totals{Scenarios: 2, Passed: 1, Failed: 1, Steps: 3, StepFailures: 1, Duration: 4 * time.Millisecond},
	}
	refunds := report.FeatureReport{
		ID:       "refunds",
		URI:      "features/refunds.feature",
		Name:     "Refunds",
		Keyword:  "Feature",
		Line:     1,
		Tags:     []string{},
		Elements: []report.ScenarioReport{incomplete},
		Totals:   report.Totals{Scenarios: 1, Errored: 1},
	}

	r := &report.Report{
		Features: []report.FeatureReport{checkout, refunds},
		Warnings: []string{"features/refunds.feature: scenario \"Refund with receipt\" is incomplete"},
	}
	r.Totals.Add(checkout.Totals)
	r.Totals.Add(refunds.Totals)
	return r
}

func emit(t *testing.T, e Emitter, r *report.Report) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, e.Emit(&buf, r))
	return buf.String()
}

// =============================================================================
// ForFormat Tests
// =============================================================================

func TestForFormat(t *testing.T) {
	t.Run("defaults to xml", func(t *testing.T) {
		e, err := ForFormat("", "")
		require.NoError(t, err)
		require.Equal(t, &XML{SuiteName: DefaultTitle}, e)
	})

	t.Run("selects by name ignoring case", func(t *testing.T) {
		e, err := ForFormat("JSON", "nightly")
		require.NoError(t, err)
		require.IsType(t, &JSON{}, e)

		e, err = ForFormat("html", "nightly")
		require.NoError(t, err)
		require.Equal(t, &HTML{Title: "nightly"}, e)
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		_, err := ForFormat("yaml", "")
		require.ErrorIs(t, err, ErrUnknownFormat)
	})
}

// =============================================================================
// XML Tests
// =============================================================================

func TestXML_Emit(t *testing.T) {
	out := emit(t, &XML{SuiteName: "nightly"}, sampleReport())

	t.Run("starts with the xml declaration", func(t *testing.T) {
		require.True(t, strings.HasPrefix(out, xml.Header))
	})

	t.Run("is well formed", func(t *testing.T) {
		decoder := xml.NewDecoder(strings.NewReader(out))
		for {
			_, err := decoder.Token()
			if err != nil {
				require.ErrorIs(t, err, io.EOF)
				break
			}
		}
	})

	t.Run("writes suite counters", func(t *testing.T) {
		require.Contains(t, out, `<testsuites name="nightly" tests="3" failures="1" errors="1" skipped="0" time="0.004">`)
		require.Contains(t, out, `<testsuite id="checkout" name="Checkout" uri="features/checkout.feature" line="2" keyword="Feature" tests="2" failures="1" errors="0" skipped="0" time="0.004">`)
	})

	t.Run("writes steps with arguments, matches and embeddings", func(t *testing.T) {
		require.Contains(t, out, `<step keyword="Before" name="" hidden="true" failures="0" errors="0" skipped="0"></step>`)
		require.Contains(t, out, `match="steps/payment.go:17" status="passed" duration="3000000"`)
		require.Contains(t, out, `<argument>| card | amount |`)
		require.Contains(t, out, `<embedding mime_type="image/png">iVBORw0KGgo=</embedding>`)
		require.Contains(t, out, `<embedding mime_type="text/plain">receipt &lt;printed&gt;</embedding>`)
	})

	t.Run("writes junit failure from the failing step", func(t *testing.T) {
		require.Contains(t, out, `<failure type="AssertionError" message="AssertionError: expected 90, got 100">`)
		require.Contains(t, out, `<error name="AssertionError">AssertionError: expected 90, got 100`)
	})

	t.Run("writes incomplete scenarios as errors", func(t *testing.T) {
		require.Contains(t, out, `status="errored" time="0.000" incomplete="true"`)
		require.Contains(t, out, `<error type="incomplete" message="features/refunds.feature: no pickle step at line 99">`)
		require.Contains(t, out, `<system-err>features/refunds.feature: no pickle step at line 99</system-err>`)
	})

	t.Run("is byte-identical across runs", func(t *testing.T) {
		require.Equal(t, out, emit(t, &XML{SuiteName: "nightly"}, sampleReport()))
	})

	t.Run("writes an empty report", func(t *testing.T) {
		empty := emit(t, &XML{}, &report.Report{})
		require.Contains(t, empty, `<testsuites tests="0" failures="0" errors="0" skipped="0" time="0.000"></testsuites>`)
	})
}

func TestXML_SkippedScenario(t *testing.T) {
	r := &report.Report{Features: []report.FeatureReport{{
		ID:   "f",
		Name: "F",
		Elements: []report.ScenarioReport{{
			ID:      "s",
			Name:    "S",
			Outcome: report.OutcomeSkipped,
			Steps:   []report.Step{{Keyword: "Given ", Name: "x", Result: report.Result{Status: report.StatusSkipped, Skipped: 1}}},
		}},
	}}}

	out := emit(t, &XML{}, r)
	require.Contains(t, out, `<skipped></skipped>`)
}

// =============================================================================
// JSON Tests
// =============================================================================

func TestJSON_Emit(t *testing.T) {
	out := emit(t, &JSON{}, sampleReport())

	var features []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &features))
	require.Len(t, features, 2)

	t.Run("keeps feature metadata", func(t *testing.T) {
		require.Equal(t, "checkout", features[0]["id"])
		require.Equal(t, "features/checkout.feature", features[0]["uri"])
		require.Equal(t, []any{map[string]any{"name": "@shop"}}, features[0]["tags"])
	})

	t.Run("keeps step results", func(t *testing.T) {
		elements := features[0]["elements"].([]any)
		steps := elements[1].(map[string]any)["steps"].([]any)
		result := steps[0].(map[string]any)["result"].(map[string]any)

		require.Equal(t, "failed", result["status"])
		require.Equal(t, float64(1000000), result["duration"])
		require.Equal(t, float64(1), result["failures"])
		require.Equal(t, float64(0), result["errors"])
		require.Equal(t, "AssertionError", result["error_name"])
	})

	t.Run("hides empty optional fields", func(t *testing.T) {
		elements := features[0]["elements"].([]any)
		hook := elements[0].(map[string]any)["steps"].([]any)[0].(map[string]any)

		require.Equal(t, true, hook["hidden"])
		require.NotContains(t, hook, "match")
		require.NotContains(t, hook, "embeddings")
		require.Equal(t, map[string]any{"failures": float64(0), "errors": float64(0), "skipped": float64(0)}, hook["result"])
	})

	t.Run("keeps embeddings in order", func(t *testing.T) {
		elements := features[0]["elements"].([]any)
		step := elements[0].(map[string]any)["steps"].([]any)[1].(map[string]any)
		require.Equal(t, []any{
			map[string]any{"data": "iVBORw0KGgo=", "mime_type": "image/png"},
			map[string]any{"data": "receipt <printed>", "mime_type": "text/plain"},
		}, step["embeddings"])
	})

	t.Run("flags incomplete scenarios", func(t *testing.T) {
		scenario := features[1]["elements"].([]any)[0].(map[string]any)
		require.Equal(t, true, scenario["incomplete"])
		require.Equal(t, []any{}, scenario["steps"])
	})
}

// =============================================================================
// HTML Tests
// =============================================================================

func TestHTML_Emit(t *testing.T) {
	out := emit(t, &HTML{Title: "Nightly", GeneratedAt: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)}, sampleReport())

	t.Run("renders title and generation time", func(t *testing.T) {
		require.Contains(t, out, "<h1>Nightly Report</h1>")
		require.Contains(t, out, "Generated at 2024-03-01 10:30:00")
	})

	t.Run("renders summary from report totals", func(t *testing.T) {
		require.Contains(t, out, `class="summary has-failures"`)
		require.Contains(t, out, `<div class="number red">1</div><div class="label">Errored</div>`)
	})

	t.Run("orders failed section before passed", func(t *testing.T) {
		failed := strings.Index(out, "Failed Scenarios")
		passed := strings.Index(out, "Passed Scenarios")
		require.NotEqual(t, -1, failed)
		require.NotEqual(t, -1, passed)
		require.Less(t, failed, passed)
	})

	t.Run("escapes text and embeds images", func(t *testing.T) {
		require.Contains(t, out, "text/plain: receipt &lt;printed&gt;")
		require.Contains(t, out, `<img src="data:image/png;base64,iVBORw0KGgo="`)
	})

	t.Run("lists warnings", func(t *testing.T) {
		require.Contains(t, out, "<strong>Warnings</strong>")
	})

	t.Run("renders an empty run", func(t *testing.T) {
		empty := emit(t, &HTML{}, &report.Report{})
		require.Contains(t, empty, "No scenarios were executed.")
		require.Contains(t, empty, `class="summary all-passed"`)
	})
}

// =============================================================================
// WriteFile Tests
// =============================================================================

func TestWriteFile(t *testing.T) {
	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reports", "nested", "cucumber.xml")

		require.NoError(t, WriteFile(path, &XML{}, sampleReport()))

		written, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, emit(t, &XML{}, sampleReport()), string(written))
	})

	t.Run("fails when the directory cannot be created", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

		err := WriteFile(filepath.Join(blocker, "report.xml"), &XML{}, sampleReport())
		require.Error(t, err)
		require.Contains(t, err.Error(), "could not create report directory")
	})
}

func TestXML_EmitAggregated(t *testing.T) {
	t.Run("writes byte-identical XML for repeated aggregations", func(t *testing.T) {
		newID, err := gherkin_parser.NewIDGenerator(gherkin_parser.IDGeneratorIncrementing)
		require.NoError(t, err)
		docs, err := gherkin_parser.LoadDocuments([]string{"../gherkin_parser/testdata"}, newID)
		require.NoError(t, err)

		documents := make(document.Set)
		var attempts []report.TestCaseAttempt
		for _, gd := range docs {
			doc := document.New(gd, "")
			documents.Add(doc)
			for _, pickle := range gherkin_parser.Pickles(gd, newID) {
				attempt := report.TestCaseAttempt{URI: doc.URI(), Pickle: pickle}
				for i := range pickle.Steps {
					status := report.StatusPassed
					if i == len(pickle.Steps)-1 {
						status = report.StatusFailed
					}
					attempt.Steps = append(attempt.Steps, report.StepExecution{
						Kind:   report.StepHook,
						Result: &report.StepResult{Status: report.StatusPassed, Duration: duration(time.Millisecond)},
					}, report.StepExecution{
						Kind:   report.StepDeclared,
						Line:   stepLine(t, doc, pickle.Steps[i]),
						Result: &report.StepResult{Status: status, Duration: duration(2 * time.Millisecond)},
					})
				}
				attempts = append(attempts, attempt)
			}
		}

		emit := func(opts ...report.Option) []byte {
			r, err := report.Aggregate(context.Background(), attempts, documents, opts...)
			require.NoError(t, err)
			var buf bytes.Buffer
			require.NoError(t, (&XML{SuiteName: "Shop"}).Emit(&buf, r))
			return buf.Bytes()
		}

		first := emit()
		require.Contains(t, string(first), `<testcase`)
		require.Equal(t, first, emit())
		require.Equal(t, first, emit(report.WithParallelism(4)))
	})
}

func stepLine(t *testing.T, doc *document.Document, step *messages.PickleStep) int64 {
	t.Helper()
	line, ok := doc.PickleStepLine(step)
	require.True(t, ok)
	return line
}
