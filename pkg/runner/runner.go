// Package runner wires ingestion, aggregation and emission into one
// conversion of a Cucumber message stream into a report.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"

	messages "github.com/cucumber/messages/go/v21"
	"github.com/denizgursoy/cukexml/pkg/document"
	"github.com/denizgursoy/cukexml/pkg/emitter"
	"github.com/denizgursoy/cukexml/pkg/gherkin_parser"
	"github.com/denizgursoy/cukexml/pkg/ingest"
	"github.com/denizgursoy/cukexml/pkg/report"
	"github.com/rs/zerolog"
)

type (
	ReportRunner struct {
		featureDirectories []string
		newID              func() string
		logger             zerolog.Logger
		reportOptions      []report.Option
		emitter            Emitter
		outputFile         string
		writer             io.Writer
		history            HistoryRecorder
		suite              string
		summary            SummaryPrinter
	}
)

func NewReportRunner(e Emitter) *ReportRunner {
	return &ReportRunner{
		newID:   (&messages.Incrementing{}).NewId,
		logger:  zerolog.Nop(),
		emitter: e,
		writer:  os.Stdout,
	}
}

// WithFeaturesDirectories loads the feature files below directories so that
// streams without gherkinDocument envelopes can still be resolved.
func (c *ReportRunner) WithFeaturesDirectories(directories ...string) *ReportRunner {
	c.featureDirectories = directories

	return c
}

func (c *ReportRunner) WithIDGenerator(newID func() string) *ReportRunner {
	if newID != nil {
		c.newID = newID
	}

	return c
}

func (c *ReportRunner) WithLogger(logger zerolog.Logger) *ReportRunner {
	c.logger = logger

	return c
}

// WithReportOptions passes options such as a tag filter to the aggregator.
func (c *ReportRunner) WithReportOptions(opts ...report.Option) *ReportRunner {
	c.reportOptions = append(c.reportOptions, opts...)

	return c
}

// WithOutputFile writes the report to path instead of the writer.
func (c *ReportRunner) WithOutputFile(path string) *ReportRunner {
	c.outputFile = path

	return c
}

func (c *ReportRunner) WithWriter(w io.Writer) *ReportRunner {
	c.writer = w

	return c
}

// WithHistory records every finished report under suite.
func (c *ReportRunner) WithHistory(recorder HistoryRecorder, suite string) *ReportRunner {
	c.history = recorder
	c.suite = suite

	return c
}

func (c *ReportRunner) WithSummary(printer SummaryPrinter) *ReportRunner {
	c.summary = printer

	return c
}

// Run reads the message stream from in, emits the aggregated report and
// returns it.
func (c *ReportRunner) Run(ctx context.Context, in io.Reader) (*report.Report, error) {
	collector := report.NewCollector(append([]report.Option{report.WithLogger(c.logger)}, c.reportOptions...)...)

	preloaded, err := c.loadFeatureDocuments()
	if err != nil {
		return nil, err
	}
	for _, doc := range preloaded {
		collector.AddDocument(doc)
	}

	reader := ingest.NewReader(ingest.WithLogger(c.logger), ingest.WithDocuments(preloaded...))
	stats, err := reader.Read(ctx, in, collector)
	if err != nil {
		return nil, fmt.Errorf("could not read message stream: %w", err)
	}
	c.logger.Debug().
		Int("envelopes", stats.Envelopes).
		Int("documents", stats.Documents).
		Int("attempts", stats.Attempts).
		Bool("finished", stats.Finished).
		Msg("message stream read")

	r, err := collector.Finalize(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not aggregate results: %w", err)
	}

	if err := c.emit(r); err != nil {
		return nil, err
	}

	if c.history != nil {
		run, err := c.history.Record(ctx, c.suite, r)
		if err != nil {
			return r, fmt.Errorf("could not record run history: %w", err)
		}
		c.logger.Debug().Str("run", run.ID).Str("suite", run.Suite).Msg("run recorded")
	}

	if c.summary != nil {
		c.summary.PrintReport(r)
	}

	c.logger.Info().
		Int("features", len(r.Features)).
		Int("scenarios", r.Totals.Scenarios).
		Int("failed", r.Totals.Failed).
		Int("errored", r.Totals.Errored).
		Msg("report written")

	return r, nil
}

func (c *ReportRunner) loadFeatureDocuments() ([]*document.Document, error) {
	if len(c.featureDirectories) == 0 {
		return nil, nil
	}

	parsed, err := gherkin_parser.LoadDocuments(c.featureDirectories, c.newID)
	if err != nil {
		return nil, fmt.Errorf("could not load feature files: %w", err)
	}
	documents := make([]*document.Document, 0, len(parsed))
	for _, doc := range parsed {
		documents = append(documents, document.NewCompiled(doc, gherkin_parser.Pickles(doc, c.newID)))
	}
	c.logger.Debug().Int("documents", len(documents)).Strs("directories", c.featureDirectories).Msg("feature files loaded")

	return documents, nil
}

func (c *ReportRunner) emit(r *report.Report) error {
	if c.outputFile != "" {
		return emitter.WriteFile(c.outputFile, c.emitter, r)
	}
	if err := c.emitter.Emit(c.writer, r); err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}

	return nil
}
