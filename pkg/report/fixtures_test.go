package report

import (
	"testing"
	"time"

	messages "github.com/cucumber/messages/go/v21"
	"github.com/denizgursoy/cukexml/pkg/document"
	"github.com/denizgursoy/cukexml/pkg/gherkin_parser"
	"github.com/stretchr/testify/require"
)

const (
	checkoutURI = "../gherkin_parser/testdata/checkout.feature"
	refundsURI  = "../gherkin_parser/testdata/nested/refunds.feature"
)

type fixture struct {
	doc     *document.Document
	pickles []*messages.Pickle
}

// loadFixtures parses the shared feature files. The checkout pickles are
// "Paying by card" (steps on lines 6, 12, 13) and two rows of "Applying a
// voucher" (lines 6, 16, 17); the refunds pickle uses lines 6, 9, 10.
func loadFixtures(t *testing.T) (checkout, refunds fixture) {
	t.Helper()
	newID, err := gherkin_parser.NewIDGenerator(gherkin_parser.IDGeneratorIncrementing)
	require.NoError(t, err)

	docs, err := gherkin_parser.LoadDocuments([]string{"../gherkin_parser/testdata"}, newID)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	for _, gd := range docs {
		f := fixture{doc: document.New(gd, ""), pickles: gherkin_parser.Pickles(gd, newID)}
		switch gd.Uri {
		case checkoutURI:
			checkout = f
		case refundsURI:
			refunds = f
		default:
			t.Fatalf("unexpected fixture %s", gd.Uri)
		}
	}
	return checkout, refunds
}

func documentsOf(fixtures ...fixture) document.Set {
	set := make(document.Set)
	for _, f := range fixtures {
		set.Add(f.doc)
	}
	return set
}

func duration(d time.Duration) *time.Duration {
	return &d
}

func declared(line int64, status Status) StepExecution {
	step := StepExecution{Kind: StepDeclared, Line: line}
	if status != "" {
		step.Result = &StepResult{Status: status, Duration: duration(time.Millisecond)}
	}
	return step
}

func hook(status Status) StepExecution {
	step := StepExecution{Kind: StepHook}
	if status != "" {
		step.Result = &StepResult{Status: status}
	}
	return step
}

func attemptOf(f fixture, pickle int, steps ...StepExecution) TestCaseAttempt {
	return TestCaseAttempt{
		URI:    f.doc.URI(),
		Pickle: f.pickles[pickle],
		Steps:  steps,
	}
}
