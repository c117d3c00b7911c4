package rules

import (
	"github.com/google/cel-go/cel"
	"golang.org/x/text/message"

	"github.com/solatis/fieldcheck/internal/types"
)

// Variables visible to expr checks.
const (
	exprVarValue  = "value"
	exprVarField  = "field"
	exprVarRecord = "record"
)

// checkExpr runs a compiled expression. Anything other than a true result,
// evaluation errors included, is a data failure.
func checkExpr(p *message.Printer, c types.ExprCheck, prog cel.Program, field string, value any, rec *types.Record) types.Outcome {
	if prog == nil {
		return types.Fail(field, c.Kind().String(), p.Sprintf(msgExprFailed, field))
	}
	out, _, err := prog.Eval(map[string]any{
		exprVarValue:  value,
		exprVarField:  field,
		exprVarRecord: rec.Map(),
	})
	if err != nil {
		return types.Fail(field, c.Kind().String(), p.Sprintf(msgExprFailed, field))
	}
	if ok, isBool := out.Value().(bool); !isBool || !ok {
		return types.Fail(field, c.Kind().String(), p.Sprintf(msgExprFailed, field))
	}
	return types.Pass()
}
