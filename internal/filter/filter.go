// Package filter selects list items with expr-lang boolean expressions such
// as `text contains "milk"` or `id > 3 && text != ""`.
package filter

import (
	"fmt"
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/idilsaglam/tada/internal/model"
)

// Filter is a compiled item predicate.
type Filter struct {
	source  string
	program *exprvm.Program
}

func itemEnv(it model.Item) map[string]any {
	return map[string]any{
		"id":   int64(it.ID),
		"text": it.Text,
	}
}

// Compile parses expression. An empty expression matches every item.
func Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return &Filter{}, nil
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(itemEnv(model.Item{})),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", expression, err)
	}
	return &Filter{source: expression, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string { return f.source }

// Match reports whether it satisfies the filter.
func (f *Filter) Match(it model.Item) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}
	out, err := exprlang.Run(f.program, itemEnv(it))
	if err != nil {
		return false, fmt.Errorf("filter %q: %w", f.source, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("filter %q: result %T is not a bool", f.source, out)
	}
	return ok, nil
}

// Apply returns the matching items in their original order.
func (f *Filter) Apply(list model.List) (model.List, error) {
	out := make(model.List, 0, len(list))
	for _, it := range list {
		ok, err := f.Match(it)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
		}
	}
	return out, nil
}
