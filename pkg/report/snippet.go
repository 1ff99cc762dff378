package report

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/dave/jennifer/jen"
)

const (
	undefinedHeader = "Undefined step. Implement with the following snippet:"
	snippetComment  = "Write code here that turns the phrase above into concrete actions"
	pendingPackage  = "github.com/cucumber/godog"
)

// undefinedStepMessage builds the error message of an undefined step: a
// one-line header followed by a step definition skeleton. Both the keyword
// and the step text appear verbatim in the skeleton's leading comment.
func undefinedStepMessage(keyword, text string) (string, error) {
	keyword = strings.TrimSpace(keyword)

	code, err := stepDefinitionSnippet(keyword, text)
	if err != nil {
		code = plainSnippet(keyword, text)
	}
	return undefinedHeader + "\n" + indent(code, "  "), err
}

func stepDefinitionSnippet(keyword, text string) (string, error) {
	stmt := jen.Comment(keyword+" "+text).Line().
		Id("sc").Dot("Step").Call(
			jen.Lit("^"+regexp.QuoteMeta(text)+"$"),
			jen.Func().Params(jen.Id("ctx").Qual("context", "Context")).Error().Block(
				jen.Comment(snippetComment),
				jen.Return(jen.Qual(pendingPackage, "ErrPending")),
			),
		)

	var buf bytes.Buffer
	if err := stmt.Render(&buf); err != nil {
		return "", fmt.Errorf("could not render snippet for %q: %w", text, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func plainSnippet(keyword, text string) string {
	return fmt.Sprintf("// %s %s\nsc.Step(`^%s$`, func(ctx context.Context) error {\n\t// %s\n\treturn godog.ErrPending\n})",
		keyword, text, text, snippetComment)
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
