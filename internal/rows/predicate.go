// Compiles expr-lang conditions used by Criteria.Where.

package rows

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// predicateEnv is the set of variables visible to an expression.
type predicateEnv struct {
	Section       string  `expr:"section"`
	Key           string  `expr:"key"`
	Value         string  `expr:"value"`
	Confidence    float64 `expr:"confidence"`
	SourceSpan    string  `expr:"sourceSpan"`
	HasSourceSpan bool    `expr:"hasSourceSpan"`
}

// Predicate is a compiled boolean expression over a row, for example
// `confidence < 0.8 && section == "Formulation"`.
type Predicate struct {
	source  string
	program *vm.Program
}

// CompilePredicate compiles src. An empty src yields a nil Predicate.
func CompilePredicate(src string) (*Predicate, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.Env(predicateEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPredicate, err)
	}
	return &Predicate{source: src, program: program}, nil
}

// String returns the source expression.
func (p *Predicate) String() string {
	return p.source
}

// Match reports whether r satisfies the expression. Evaluation errors do not match.
func (p *Predicate) Match(r *Row) bool {
	env := predicateEnv{
		Section:       r.Section,
		Key:           r.Key,
		Value:         r.Value,
		Confidence:    r.Confidence,
		SourceSpan:    r.Span(),
		HasSourceSpan: r.SourceSpan != nil,
	}
	out, err := expr.Run(p.program, env)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}
