package document

import (
	"strings"

	messages "github.com/cucumber/messages/go/v21"
)

// NewCompiled builds a Document over a feature file parsed locally, together
// with the pickles compiled from it. The AST node ids of such a document are
// its own, so pickles from a message stream are resolved through a Binder.
func NewCompiled(doc *messages.GherkinDocument, pickles []*messages.Pickle) *Document {
	d := New(doc, "")
	d.compiled = make([]*messages.Pickle, len(pickles))
	copy(d.compiled, pickles)
	return d
}

// Compiled reports whether d was built by NewCompiled.
func (d *Document) Compiled() bool {
	return d.compiled != nil
}

// Binder maps pickles of a message stream onto the locally compiled pickles
// of one document. Pickles are matched by name and step texts; pickles that
// share both are matched in the order they were compiled. A Binder is not
// safe for concurrent use.
type Binder struct {
	candidates map[string][]*messages.Pickle
	used       map[string]int
}

// NewBinder returns a Binder over the compiled pickles of d.
func NewBinder(d *Document) *Binder {
	b := &Binder{
		candidates: make(map[string][]*messages.Pickle),
		used:       make(map[string]int),
	}
	for _, pickle := range d.compiled {
		key := signature(pickle)
		b.candidates[key] = append(b.candidates[key], pickle)
	}
	return b
}

// Bind returns a copy of pickle whose AST node ids, and those of its steps,
// refer to the local document. Pickle and step ids are kept, so test cases
// of the stream still refer to them. It returns false when no local pickle
// is left to match.
func (b *Binder) Bind(pickle *messages.Pickle) (*messages.Pickle, bool) {
	key := signature(pickle)
	candidates := b.candidates[key]
	next := b.used[key]
	if next >= len(candidates) {
		return pickle, false
	}
	b.used[key] = next + 1
	local := candidates[next]

	bound := *pickle
	bound.AstNodeIds = local.AstNodeIds
	bound.Steps = make([]*messages.PickleStep, len(pickle.Steps))
	for i, step := range pickle.Steps {
		copied := *step
		copied.AstNodeIds = local.Steps[i].AstNodeIds
		bound.Steps[i] = &copied
	}
	return &bound, true
}

func signature(pickle *messages.Pickle) string {
	var sb strings.Builder
	sb.WriteString(pickle.Name)
	for _, step := range pickle.Steps {
		sb.WriteByte(0)
		sb.WriteString(step.Text)
	}
	return sb.String()
}
