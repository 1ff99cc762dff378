// Package document indexes a parsed Gherkin document so that execution
// events, which only carry source lines and AST node ids, can be mapped back
// to keywords, step texts and scenario descriptions.
package document

import (
	"strings"

	messages "github.com/cucumber/messages/go/v21"
)

// Feature holds the metadata of a document's feature that appears in a
// report.
type Feature struct {
	// Name is the feature name as written after the Feature: keyword.
	Name string

	// Keyword is the localized Feature keyword (e.g. "Feature", "Fonctionnalité").
	Keyword string

	// Description is the free text below the Feature: line, trimmed.
	Description string

	// Tags contains the tag names attached to the feature (e.g. "@smoke").
	Tags []string

	// Line is the source line of the Feature: keyword.
	Line int64
}

// Document is an immutable index over one *messages.GherkinDocument.
// It is safe for concurrent reads once built.
type Document struct {
	uri     string
	feature Feature
	hasFeat bool

	stepKeywords         map[int64]string
	scenarioDescriptions map[int64]string
	nodeLines            map[string]int64

	compiled []*messages.Pickle
}

// New builds the line and AST node indexes for doc. The uri argument is used
// when doc.Uri is empty.
func New(doc *messages.GherkinDocument, uri string) *Document {
	d := &Document{
		uri:                  uri,
		stepKeywords:         make(map[int64]string),
		scenarioDescriptions: make(map[int64]string),
		nodeLines:            make(map[string]int64),
	}
	if doc == nil {
		return d
	}
	if doc.Uri != "" && uri == "" {
		d.uri = doc.Uri
	}
	if doc.Feature == nil {
		return d
	}

	d.hasFeat = true
	d.feature = FeatureFromMessage(doc.Feature)

	for _, child := range doc.Feature.Children {
		switch {
		case child.Background != nil:
			d.indexSteps(child.Background.Steps)
		case child.Scenario != nil:
			d.indexScenario(child.Scenario)
		case child.Rule != nil:
			d.indexRule(child.Rule)
		}
	}

	return d
}

func (d *Document) indexRule(rule *messages.Rule) {
	for _, child := range rule.Children {
		if child.Background != nil {
			d.indexSteps(child.Background.Steps)
		} else if child.Scenario != nil {
			d.indexScenario(child.Scenario)
		}
	}
}

func (d *Document) indexScenario(scenario *messages.Scenario) {
	line := lineOf(scenario.Location)
	d.nodeLines[scenario.Id] = line
	if description := strings.TrimSpace(scenario.Description); description != "" {
		d.scenarioDescriptions[line] = description
	}
	d.indexSteps(scenario.Steps)

	// Example rows are AST nodes of their own; a pickle of an outline
	// points at the outline first and at the row second.
	for _, examples := range scenario.Examples {
		for _, row := range examples.TableBody {
			d.nodeLines[row.Id] = lineOf(row.Location)
		}
	}
}

func (d *Document) indexSteps(steps []*messages.Step) {
	for _, step := range steps {
		line := lineOf(step.Location)
		d.stepKeywords[line] = step.Keyword
		d.nodeLines[step.Id] = line
	}
}

// URI returns the source identity of the document.
func (d *Document) URI() string {
	return d.uri
}

// Feature returns the feature metadata and false when the document has no
// Feature (an empty or comment-only file).
func (d *Document) Feature() (Feature, bool) {
	return d.feature, d.hasFeat
}

// KeywordFor returns the step keyword declared on line, including its
// trailing space (e.g. "Given ").
func (d *Document) KeywordFor(line int64) (string, error) {
	keyword, ok := d.stepKeywords[line]
	if !ok {
		return "", &LookupError{URI: d.uri, Line: line, What: "step keyword"}
	}
	return keyword, nil
}

// DescriptionFor returns the description of the scenario the pickle was
// compiled from, or "" when the scenario has none.
func (d *Document) DescriptionFor(pickle *messages.Pickle) string {
	if pickle == nil || len(pickle.AstNodeIds) == 0 {
		return ""
	}
	line, ok := d.nodeLines[pickle.AstNodeIds[0]]
	if !ok {
		return ""
	}
	return d.scenarioDescriptions[line]
}

// ScenarioLine returns the source line a pickle was compiled from: the
// Examples row for outline pickles, the scenario otherwise.
func (d *Document) ScenarioLine(pickle *messages.Pickle) (int64, error) {
	if pickle == nil || len(pickle.AstNodeIds) == 0 {
		return 0, &LookupError{URI: d.uri, What: "scenario"}
	}
	node := pickle.AstNodeIds[len(pickle.AstNodeIds)-1]
	line, ok := d.nodeLines[node]
	if !ok {
		return 0, &LookupError{URI: d.uri, Node: node, What: "scenario"}
	}
	return line, nil
}

// StepLine returns the source line of the AST node with the given id.
func (d *Document) StepLine(astNodeID string) (int64, bool) {
	line, ok := d.nodeLines[astNodeID]
	return line, ok
}

// PickleStepLine returns the source line a pickle step was compiled from.
// For steps of a Scenario Outline this is the line of the outline step.
func (d *Document) PickleStepLine(step *messages.PickleStep) (int64, bool) {
	if step == nil || len(step.AstNodeIds) == 0 {
		return 0, false
	}
	return d.StepLine(step.AstNodeIds[0])
}

// PickleStepsByLine maps each step of pickle to the source line it was
// compiled from. Steps whose AST node is unknown are left out.
func (d *Document) PickleStepsByLine(pickle *messages.Pickle) map[int64]*messages.PickleStep {
	steps := make(map[int64]*messages.PickleStep)
	if pickle == nil {
		return steps
	}
	for _, step := range pickle.Steps {
		if line, ok := d.PickleStepLine(step); ok {
			steps[line] = step
		}
	}
	return steps
}

// FeatureFromMessage converts a parsed Gherkin Feature message into the
// report metadata kept by a Document.
func FeatureFromMessage(f *messages.Feature) Feature {
	tags := make([]string, len(f.Tags))
	for i, t := range f.Tags {
		tags[i] = t.Name
	}
	return Feature{
		Name:        f.Name,
		Keyword:     f.Keyword,
		Description: strings.TrimSpace(f.Description),
		Tags:        tags,
		Line:        lineOf(f.Location),
	}
}

// PickleTags returns the tag names of a pickle, which include the tags it
// inherited from its feature, rule and examples block.
func PickleTags(pickle *messages.Pickle) []string {
	if pickle == nil {
		return nil
	}
	tags := make([]string, len(pickle.Tags))
	for i, t := range pickle.Tags {
		tags[i] = t.Name
	}
	return tags
}

func lineOf(location *messages.Location) int64 {
	if location == nil {
		return 0
	}
	return location.Line
}
