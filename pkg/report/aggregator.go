package report

import (
	"context"
	"fmt"

	"github.com/denizgursoy/cukexml/pkg/document"
	"golang.org/x/sync/errgroup"
)

const scenarioKeyword = "Scenario"

// Aggregator groups attempts by document and reduces them into a Report.
type Aggregator struct {
	opts    options
	reducer *Reducer
}

// NewAggregator creates an Aggregator. The same options are passed to the
// Reducer it uses.
func NewAggregator(opts ...Option) *Aggregator {
	o := newOptions(opts)
	return &Aggregator{
		opts:    o,
		reducer: &Reducer{opts: o},
	}
}

// Aggregate is shorthand for NewAggregator(opts...).Aggregate.
func Aggregate(ctx context.Context, attempts []TestCaseAttempt, documents document.Set, opts ...Option) (*Report, error) {
	return NewAggregator(opts...).Aggregate(ctx, attempts, documents)
}

// featureSlot is the result of reducing one document group. Slots are
// filled by index so that concurrent reduction keeps first-seen order.
type featureSlot struct {
	feature  FeatureReport
	warnings []string
}

// Aggregate builds the report of a run. Retried attempts are dropped,
// remaining attempts are grouped by document URI in the order they were first
// seen, and each attempt becomes one scenario. Lookup errors never abort the
// run: the affected scenario is emitted incomplete and a warning is recorded.
// The only error returned is ctx.Err().
func (a *Aggregator) Aggregate(ctx context.Context, attempts []TestCaseAttempt, documents document.Set) (*Report, error) {
	uris, groups := a.groupAttempts(attempts)

	slots := make([]featureSlot, len(uris))
	if a.opts.parallelism > 1 && len(uris) > 1 {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(a.opts.parallelism)
		for i, uri := range uris {
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				slots[i] = a.buildFeature(uri, groups[uri], documents)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, uri := range uris {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			slots[i] = a.buildFeature(uri, groups[uri], documents)
		}
	}

	result := &Report{Features: make([]FeatureReport, 0, len(slots))}
	for _, slot := range slots {
		result.Features = append(result.Features, slot.feature)
		result.Totals.Add(slot.feature.Totals)
		result.Warnings = append(result.Warnings, slot.warnings...)
	}

	a.opts.logger.Debug().
		Int("features", len(result.Features)).
		Int("scenarios", result.Totals.Scenarios).
		Int("warnings", len(result.Warnings)).
		Msg("report aggregated")

	return result, nil
}

// groupAttempts keeps the final, tag-matching attempts and groups them by
// URI, preserving the order in which each URI was first seen.
func (a *Aggregator) groupAttempts(attempts []TestCaseAttempt) ([]string, map[string][]TestCaseAttempt) {
	uris := make([]string, 0)
	groups := make(map[string][]TestCaseAttempt)
	for _, attempt := range attempts {
		if attempt.Retried {
			continue
		}
		if a.opts.tagFilter != nil && !a.opts.tagFilter.Evaluate(document.PickleTags(attempt.Pickle)) {
			continue
		}
		if _, seen := groups[attempt.URI]; !seen {
			uris = append(uris, attempt.URI)
		}
		groups[attempt.URI] = append(groups[attempt.URI], attempt)
	}
	return uris, groups
}

func (a *Aggregator) buildFeature(uri string, group []TestCaseAttempt, documents document.Set) featureSlot {
	var slot featureSlot

	doc, err := documents.Get(uri)
	if err != nil {
		a.opts.logger.Warn().Err(err).Str("uri", uri).Msg("no gherkin document for attempts")
		doc = document.New(nil, uri)
	}

	slot.feature = newFeatureReport(doc)
	slot.feature.Elements = make([]ScenarioReport, 0, len(group))
	for _, attempt := range group {
		scenario, problem := a.buildScenario(doc, attempt, err)
		if problem != nil {
			a.opts.logger.Warn().
				Err(problem).
				Str("uri", uri).
				Str("scenario", scenario.Name).
				Msg("scenario reported incomplete")
			slot.warnings = append(slot.warnings, fmt.Sprintf("%s: scenario %q is incomplete: %v", uri, scenario.Name, problem))
		}
		slot.feature.Totals.Add(scenario.Totals)
		slot.feature.Elements = append(slot.feature.Elements, scenario)
	}
	return slot
}

func newFeatureReport(doc *document.Document) FeatureReport {
	feature, ok := doc.Feature()
	if !ok {
		return FeatureReport{
			ID:   Slug(doc.URI()),
			URI:  doc.URI(),
			Name: doc.URI(),
			Tags: []string{},
		}
	}
	return FeatureReport{
		ID:          Slug(feature.Name),
		URI:         doc.URI(),
		Name:        feature.Name,
		Keyword:     feature.Keyword,
		Description: feature.Description,
		Line:        feature.Line,
		Tags:        feature.Tags,
	}
}

// buildScenario folds the steps of one attempt. docErr is the error from
// looking up the attempt's document, if any.
func (a *Aggregator) buildScenario(doc *document.Document, attempt TestCaseAttempt, docErr error) (ScenarioReport, error) {
	pickle := attempt.Pickle
	scenario := ScenarioReport{
		Keyword: scenarioKeyword,
		Tags:    document.PickleTags(pickle),
		Steps:   make([]Step, 0, len(attempt.Steps)),
	}
	if scenario.Tags == nil {
		scenario.Tags = []string{}
	}

	problem := docErr
	if pickle == nil && problem == nil {
		problem = &document.LookupError{URI: attempt.URI, What: "pickle"}
	}
	if pickle != nil {
		scenario.ID = Slug(pickle.Name)
		scenario.Name = pickle.Name
		scenario.Description = doc.DescriptionFor(pickle)
		if line, err := doc.ScenarioLine(pickle); err == nil {
			scenario.Line = line
		} else if problem == nil {
			problem = err
		}
	}

	if problem == nil {
		scope := NewStepScope(doc, pickle)
		leadingHook := true
		for _, execution := range attempt.Steps {
			leadingHook = leadingHook && execution.Kind == StepHook
			step, err := a.reducer.ReduceStep(scope, execution, leadingHook)
			if err != nil {
				problem = err
				break
			}
			scenario.Steps = append(scenario.Steps, step)
		}
	}

	if problem != nil {
		scenario.Incomplete = true
		scenario.Problem = problem.Error()
	}
	scenario.Totals = scenarioTotals(scenario)
	scenario.Outcome = outcomeOf(scenario.Totals, scenario.Incomplete)
	scenario.Totals.addOutcome(scenario.Outcome)
	return scenario, problem
}

func scenarioTotals(scenario ScenarioReport) Totals {
	totals := Totals{Scenarios: 1}
	for _, step := range scenario.Steps {
		totals.Steps++
		totals.StepFailures += step.Result.Failures
		totals.StepErrors += step.Result.Errors
		totals.StepSkipped += step.Result.Skipped
		if step.Result.Duration != nil {
			totals.Duration += *step.Result.Duration
		}
	}
	return totals
}

// outcomeOf ranks failures above errors above skips. A scenario that could
// not be matched to its document counts as errored unless a step failed.
func outcomeOf(totals Totals, incomplete bool) Outcome {
	switch {
	case totals.StepFailures > 0:
		return OutcomeFailed
	case totals.StepErrors > 0 || incomplete:
		return OutcomeErrored
	case totals.StepSkipped > 0:
		return OutcomeSkipped
	default:
		return OutcomePassed
	}
}

func (t *Totals) addOutcome(outcome Outcome) {
	switch outcome {
	case OutcomeFailed:
		t.Failed++
	case OutcomeErrored:
		t.Errored++
	case OutcomeSkipped:
		t.Skipped++
	default:
		t.Passed++
	}
}
