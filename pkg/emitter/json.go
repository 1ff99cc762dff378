package emitter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/denizgursoy/cukexml/pkg/report"
)

// JSON renders the report as an array of features, close to the
// cucumber-json layout.
type JSON struct{}

type jsonFeature struct {
	ID          string         `json:"id"`
	URI         string         `json:"uri"`
	Name        string         `json:"name"`
	Keyword     string         `json:"keyword"`
	Description string         `json:"description,omitempty"`
	Line        int64          `json:"line"`
	Tags        []jsonTag      `json:"tags"`
	Elements    []jsonScenario `json:"elements"`
}

type jsonTag struct {
	Name string `json:"name"`
}

type jsonScenario struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Keyword     string     `json:"keyword"`
	Type        string     `json:"type"`
	Line        int64      `json:"line"`
	Tags        []jsonTag  `json:"tags"`
	Steps       []jsonStep `json:"steps"`
	Incomplete  bool       `json:"incomplete,omitempty"`
	Problem     string     `json:"problem,omitempty"`
}

type jsonStep struct {
	Keyword    string          `json:"keyword"`
	Name       string          `json:"name"`
	Line       int64           `json:"line,omitempty"`
	Hidden     bool            `json:"hidden,omitempty"`
	Arguments  []string        `json:"arguments,omitempty"`
	Match      *jsonMatch      `json:"match,omitempty"`
	Result     jsonResult      `json:"result"`
	Embeddings []jsonEmbedding `json:"embeddings,omitempty"`
}

type jsonMatch struct {
	Location string `json:"location"`
}

type jsonResult struct {
	Status       string `json:"status,omitempty"`
	Duration     *int64 `json:"duration,omitempty"`
	Failures     int    `json:"failures"`
	Errors       int    `json:"errors"`
	Skipped      int    `json:"skipped"`
	ErrorName    string `json:"error_name,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type jsonEmbedding struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

// Emit writes the features as indented JSON. Durations are nanoseconds.
func (e *JSON) Emit(w io.Writer, r *report.Report) error {
	features := make([]jsonFeature, 0, len(r.Features))
	for _, feature := range r.Features {
		features = append(features, jsonFeatureOf(feature))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(features); err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return nil
}

func jsonTagsOf(tags []string) []jsonTag {
	out := make([]jsonTag, len(tags))
	for i, tag := range tags {
		out[i] = jsonTag{Name: tag}
	}
	return out
}

func jsonFeatureOf(feature report.FeatureReport) jsonFeature {
	out := jsonFeature{
		ID:          feature.ID,
		URI:         feature.URI,
		Name:        feature.Name,
		Keyword:     feature.Keyword,
		Description: feature.Description,
		Line:        feature.Line,
		Tags:        jsonTagsOf(feature.Tags),
		Elements:    make([]jsonScenario, len(feature.Elements)),
	}
	for i, scenario := range feature.Elements {
		out.Elements[i] = jsonScenario{
			ID:          scenario.ID,
			Name:        scenario.Name,
			Description: scenario.Description,
			Keyword:     scenario.Keyword,
			Type:        "scenario",
			Line:        scenario.Line,
			Tags:        jsonTagsOf(scenario.Tags),
			Steps:       make([]jsonStep, len(scenario.Steps)),
			Incomplete:  scenario.Incomplete,
			Problem:     scenario.Problem,
		}
		for j, step := range scenario.Steps {
			out.Elements[i].Steps[j] = jsonStepOf(step)
		}
	}
	return out
}

func jsonStepOf(step report.Step) jsonStep {
	out := jsonStep{
		Keyword:   step.Keyword,
		Name:      step.Name,
		Line:      step.Line,
		Hidden:    step.Hidden,
		Arguments: step.Arguments,
		Result: jsonResult{
			Status:       string(step.Result.Status),
			Failures:     step.Result.Failures,
			Errors:       step.Result.Errors,
			Skipped:      step.Result.Skipped,
			ErrorName:    step.Result.ErrorName,
			ErrorMessage: step.Result.ErrorMessage,
		},
	}
	if step.Match != nil {
		out.Match = &jsonMatch{Location: step.Match.Location}
	}
	if step.Result.Duration != nil {
		nanos := step.Result.Duration.Nanoseconds()
		out.Result.Duration = &nanos
	}
	for _, embedding := range step.Embeddings {
		out.Embeddings = append(out.Embeddings, jsonEmbedding{Data: embedding.Data, MimeType: embedding.MimeType})
	}
	return out
}
