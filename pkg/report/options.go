package report

import (
	tagexpressions "github.com/cucumber/tag-expressions/go/v6"
	"github.com/rs/zerolog"
)

type options struct {
	logger          zerolog.Logger
	formatException ExceptionFormatter
	tagFilter       tagexpressions.Evaluatable
	parallelism     int
}

func newOptions(opts []Option) options {
	o := options{
		logger:          zerolog.Nop(),
		formatException: FormatException,
		parallelism:     1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures reduction and aggregation.
type Option func(*options)

// WithLogger sets the logger used for recoverable problems.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithExceptionFormatter replaces the function that turns a step exception
// into the error message of a report.
func WithExceptionFormatter(formatter ExceptionFormatter) Option {
	return func(o *options) {
		if formatter != nil {
			o.formatException = formatter
		}
	}
}

// WithTagFilter keeps only attempts whose pickle tags satisfy expression.
func WithTagFilter(expression tagexpressions.Evaluatable) Option {
	return func(o *options) {
		o.tagFilter = expression
	}
}

// WithParallelism reduces up to n documents concurrently. Values below 2
// keep reduction on the calling goroutine. Output order is unaffected.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.parallelism = n
	}
}
