package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/denizgursoy/cukexml/pkg/config"
	"github.com/denizgursoy/cukexml/pkg/console"
	"github.com/denizgursoy/cukexml/pkg/emitter"
	"github.com/denizgursoy/cukexml/pkg/gherkin_parser"
	"github.com/denizgursoy/cukexml/pkg/history"
	"github.com/denizgursoy/cukexml/pkg/report"
	"github.com/denizgursoy/cukexml/pkg/runner"
	"github.com/spf13/cobra"
)

// ErrFailures is returned by convert with --fail-on-failures when the report
// holds failed or errored scenarios.
var ErrFailures = errors.New("report contains failed or errored scenarios")

// Streams are the standard streams of one invocation.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StandardStreams returns the process streams.
func StandardStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

type globalFlags struct {
	configDir string
	logFile   string
	verbose   bool
	quiet     bool
	noColor   bool
}

func (f *globalFlags) apply(cmd *cobra.Command, values *config.FlagValues) {
	flags := cmd.Flags()
	values.LogFile = config.StringFlag{Value: f.logFile, Set: flags.Changed("log-file")}
	values.Verbose = config.BoolFlag{Value: f.verbose, Set: flags.Changed("verbose")}
	values.Quiet = config.BoolFlag{Value: f.quiet, Set: flags.Changed("quiet")}
	values.NoColor = config.BoolFlag{Value: f.noColor, Set: flags.Changed("no-color")}
}

type convertFlags struct {
	input          string
	output         string
	format         string
	features       []string
	tags           string
	suiteName      string
	parallelism    int
	idGenerator    string
	history        string
	failOnFailures bool
}

func addConvertFlags(cmd *cobra.Command, f *convertFlags) {
	flags := cmd.Flags()
	flags.StringVarP(&f.input, "input", "i", config.Stdio, "Cucumber messages NDJSON file, - for standard input")
	flags.StringVarP(&f.output, "output", "o", config.Stdio, "report file, - for standard output")
	flags.StringVarP(&f.format, "format", "f", emitter.FormatXML, "report format: xml, json or html")
	flags.StringSliceVar(&f.features, "features", nil, "directories with feature files for streams without gherkin documents")
	flags.StringVarP(&f.tags, "tags", "t", "", "tag expression selecting the scenarios to report")
	flags.StringVar(&f.suiteName, "suite-name", emitter.DefaultTitle, "name of the test suite in the report")
	flags.IntVar(&f.parallelism, "parallelism", 1, "number of features reduced concurrently")
	flags.StringVar(&f.idGenerator, "id-generator", gherkin_parser.IDGeneratorIncrementing, "id generator for parsed feature files: incrementing or uuid")
	flags.StringVar(&f.history, "history", "", "SQLite database recording the outcome of every run")
	flags.BoolVar(&f.failOnFailures, "fail-on-failures", false, "exit with status 1 when a scenario failed or errored")
}

func (f *convertFlags) apply(cmd *cobra.Command, values *config.FlagValues) {
	flags := cmd.Flags()
	values.Input = config.StringFlag{Value: f.input, Set: flags.Changed("input")}
	values.Output = config.StringFlag{Value: f.output, Set: flags.Changed("output")}
	values.Format = config.StringFlag{Value: f.format, Set: flags.Changed("format")}
	if flags.Changed("features") {
		values.Features = config.SliceFlag{Values: f.features}
	}
	values.Tags = config.StringFlag{Value: f.tags, Set: flags.Changed("tags")}
	values.SuiteName = config.StringFlag{Value: f.suiteName, Set: flags.Changed("suite-name")}
	values.Parallelism = config.IntFlag{Value: f.parallelism, Set: flags.Changed("parallelism")}
	values.IDGenerator = config.StringFlag{Value: f.idGenerator, Set: flags.Changed("id-generator")}
	values.History = config.StringFlag{Value: f.history, Set: flags.Changed("history")}
	values.FailOnFailures = config.BoolFlag{Value: f.failOnFailures, Set: flags.Changed("fail-on-failures")}
}

// StartApplication runs the command line described by args.
func StartApplication(ctx context.Context, args []string, streams Streams) error {
	cmd := newRootCommand(streams)
	cmd.SetArgs(args)
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.Err)

	return cmd.ExecuteContext(ctx)
}

func newRootCommand(streams Streams) *cobra.Command {
	global := &globalFlags{}
	rootFlags := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "cukexml",
		Short: "Convert Cucumber test results into XML, JSON or HTML reports",
		Long: `cukexml reads the Cucumber messages NDJSON stream written by a test run,
reduces every step result, collapses retried attempts and writes one report
per run. Running cukexml without a subcommand is the same as cukexml convert.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvert(cmd, streams, global, rootFlags)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&global.configDir, "config-dir", ".", "directory containing "+config.FileName)
	persistent.StringVar(&global.logFile, "log-file", "", "also write logs to this rotating file")
	persistent.BoolVarP(&global.verbose, "verbose", "v", false, "log debug messages")
	persistent.BoolVarP(&global.quiet, "quiet", "q", false, "log only warnings and errors, print no summary")
	persistent.BoolVar(&global.noColor, "no-color", false, "disable colored output")
	addConvertFlags(cmd, rootFlags)

	cmd.AddCommand(
		newConvertCommand(streams, global),
		newConfigCommand(global),
		newHistoryCommand(streams, global),
	)
	return cmd
}

func newConvertCommand(streams Streams, global *globalFlags) *cobra.Command {
	flags := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a Cucumber messages stream into a report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvert(cmd, streams, global, flags)
		},
	}
	addConvertFlags(cmd, flags)
	return cmd
}

// loadConfig layers flags over the config file and environment.
func loadConfig(cmd *cobra.Command, global *globalFlags, appliers ...func(*cobra.Command, *config.FlagValues)) (config.Config, error) {
	cfg, err := config.Load(global.configDir)
	if err != nil {
		return cfg, err
	}

	var values config.FlagValues
	global.apply(cmd, &values)
	for _, apply := range appliers {
		apply(cmd, &values)
	}
	config.ApplyFlags(&cfg, values)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runConvert(cmd *cobra.Command, streams Streams, global *globalFlags, flags *convertFlags) error {
	cfg, err := loadConfig(cmd, global, flags.apply)
	if err != nil {
		return err
	}

	logger, logCloser := newLogger(cfg, streams.Err)
	defer logCloser.Close()

	e, err := emitter.ForFormat(cfg.Format, cfg.SuiteName)
	if err != nil {
		return err
	}
	newID, err := gherkin_parser.NewIDGenerator(cfg.IDGenerator)
	if err != nil {
		return err
	}
	reportOptions := []report.Option{report.WithParallelism(cfg.Parallelism)}
	filter, err := cfg.TagFilter()
	if err != nil {
		return err
	}
	if filter != nil {
		reportOptions = append(reportOptions, report.WithTagFilter(filter))
	}

	r := runner.NewReportRunner(e).
		WithLogger(logger).
		WithIDGenerator(newID).
		WithFeaturesDirectories(cfg.Features...).
		WithReportOptions(reportOptions...)

	if cfg.Output == config.Stdio {
		r.WithWriter(streams.Out)
	} else {
		r.WithOutputFile(cfg.Output)
	}
	if !cfg.Quiet {
		r.WithSummary(console.NewPrinter(streams.Err, useColors(cfg, streams.Err)))
	}
	if cfg.History != "" {
		store, err := history.Open(cfg.History)
		if err != nil {
			return err
		}
		defer store.Close()
		r.WithHistory(store, cfg.SuiteName)
	}

	in, closeInput, err := openInput(cfg.Input, streams.In)
	if err != nil {
		return err
	}
	defer closeInput()

	logger.Debug().Str("input", cfg.Input).Str("output", cfg.Output).Str("format", cfg.Format).Msg("converting")
	result, err := r.Run(cmd.Context(), in)
	if err != nil {
		return err
	}

	if cfg.FailOnFailures && result.HasFailures() {
		return ErrFailures
	}
	return nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == config.Stdio {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open message stream: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func useColors(cfg config.Config, w io.Writer) bool {
	return !cfg.NoColor && os.Getenv("NO_COLOR") == "" && isTerminal(w)
}
