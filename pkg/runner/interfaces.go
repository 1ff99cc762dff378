//go:generate mockgen -source=interfaces.go -destination=interfaces_mock.go -package=runner
package runner

import (
	"context"
	"io"

	"github.com/denizgursoy/cukexml/pkg/history"
	"github.com/denizgursoy/cukexml/pkg/report"
)

type (
	Emitter interface {
		Emit(w io.Writer, r *report.Report) error
	}
	HistoryRecorder interface {
		Record(ctx context.Context, suite string, r *report.Report) (history.Run, error)
	}
	SummaryPrinter interface {
		PrintReport(r *report.Report)
	}
)
