package metadata

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// conditionSet holds compiled action conditions keyed by source text.
type conditionSet struct {
	programs map[string]*vm.Program
}

// compileConditions compiles the when expression of every action. Errors
// name the entity and action so bad definitions fail at startup.
func compileConditions(def *EntityDef) (*conditionSet, error) {
	set := &conditionSet{programs: map[string]*vm.Program{}}
	for _, group := range []ActionDefs{def.Actions, def.ItemActions, def.BatchActions} {
		for _, a := range group {
			if a.When == "" {
				continue
			}
			if _, ok := set.programs[a.When]; ok {
				continue
			}
			prog, err := expr.Compile(a.When, expr.AsBool())
			if err != nil {
				return nil, fmt.Errorf("entity %s action %s: compile condition: %w", def.Name, a.Key, err)
			}
			set.programs[a.When] = prog
		}
	}
	return set, nil
}

func (s *conditionSet) eval(when string, record map[string]any) bool {
	if s == nil {
		return false
	}
	prog, ok := s.programs[when]
	if !ok {
		return false
	}
	result, err := expr.Run(prog, map[string]any{"record": record})
	if err != nil {
		return false
	}
	ok, _ = result.(bool)
	return ok
}
