package rules

import "github.com/solatis/fieldcheck/internal/types"

// checkRequired reports the first field, in rule-set order, that is required
// but was never consumed by the field loop (absent from the record or nil).
func (e *Engine) checkRequired(rs *CompiledRuleSet, consumed map[string]bool) types.Outcome {
	for _, name := range rs.names {
		if consumed[name] {
			continue
		}
		cr := rs.rules[name]
		if !cr.Rule.Required {
			continue
		}
		msg := e.printer.Sprintf(msgRequired, name)
		if tmpl, ok := cr.Rule.MessageFor(types.KeyRequired); ok {
			msg = renderMessage(tmpl, name, nil, nil)
		}
		return types.Fail(name, types.KeyRequired, msg)
	}
	return types.Pass()
}
