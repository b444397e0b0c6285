package exprlang

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/m2t/internal/errs"
	"github.com/vk/m2t/internal/value"
)

// EvalContext is the narrow contract (§6.3) the evaluator needs from the
// interpreter's execution context: variable lookup/assignment that mirrors
// the interpreter's own scoping, plus scope push/pop so that collection
// operations (select, collect, ...) can bind their iterator variable in a
// scope local to each element without leaking it to the caller.
type EvalContext interface {
	GetVariable(name string) (cty.Value, bool)
	SetVariable(name string, v cty.Value)
	PushScope()
	PopScope()
	CallQuery(name string, args []cty.Value) (cty.Value, error)
}

// Evaluate walks node and returns its value, per the grammar and operator
// set of §4.5/§6.3.
func Evaluate(node Node, ctx EvalContext) (cty.Value, error) {
	if node == nil {
		return value.Null, nil
	}
	switch n := node.(type) {
	case Literal:
		return n.Value, nil
	case Paren:
		return Evaluate(n.Inner, ctx)
	case VariableRef:
		v, ok := ctx.GetVariable(n.Name)
		if !ok {
			return cty.NilVal, errs.NewExecError(errs.VariableNotFound, n.Name, "variable not found")
		}
		return v, nil
	case Binary:
		return evalBinary(n, ctx)
	case Navigation:
		return evalNavigation(n, ctx)
	case CollectionOp:
		return evalCollectionOp(n, ctx)
	case Call:
		return evalCall(n, ctx)
	default:
		return cty.NilVal, fmt.Errorf("exprlang: unknown node type %T", node)
	}
}

func evalBinary(n Binary, ctx EvalContext) (cty.Value, error) {
	left, err := Evaluate(n.Left, ctx)
	if err != nil {
		return cty.NilVal, err
	}

	// Short-circuit boolean operators.
	if n.Op == OpAnd || n.Op == OpOr {
		lb, ok := value.Truthy(left)
		if !ok {
			return cty.NilVal, errs.NewExecError(errs.TypeError, "", "left operand of %v is not boolean", n.Op)
		}
		if n.Op == OpAnd && !lb {
			return value.Bool(false), nil
		}
		if n.Op == OpOr && lb {
			return value.Bool(true), nil
		}
		right, err := Evaluate(n.Right, ctx)
		if err != nil {
			return cty.NilVal, err
		}
		rb, ok := value.Truthy(right)
		if !ok {
			return cty.NilVal, errs.NewExecError(errs.TypeError, "", "right operand of %v is not boolean", n.Op)
		}
		return value.Bool(rb), nil
	}

	right, err := Evaluate(n.Right, ctx)
	if err != nil {
		return cty.NilVal, err
	}

	switch n.Op {
	case OpEquals:
		eq, err := value.Equal(left, right)
		return value.Bool(eq), err
	case OpNotEquals:
		eq, err := value.Equal(left, right)
		return value.Bool(!eq), err
	case OpAdd:
		return evalAdd(left, right)
	case OpSubtract, OpMultiply, OpDivide:
		return evalArith(n.Op, left, right)
	case OpLessThan, OpGreaterThan, OpLessOrEqual, OpGreaterOrEqual:
		return evalCompare(n.Op, left, right)
	default:
		return cty.NilVal, fmt.Errorf("exprlang: unknown binary operator %v", n.Op)
	}
}

// evalAdd implements §6.3's "string `+` is string concatenation" rule
// alongside numeric addition.
func evalAdd(left, right cty.Value) (cty.Value, error) {
	if left.Type() == cty.String || right.Type() == cty.String {
		ls, err := value.CanonicalString(left)
		if err != nil {
			return cty.NilVal, err
		}
		rs, err := value.CanonicalString(right)
		if err != nil {
			return cty.NilVal, err
		}
		return value.String(ls + rs), nil
	}
	return evalArith(OpAdd, left, right)
}

func evalArith(op BinaryOp, left, right cty.Value) (cty.Value, error) {
	if left.Type() != cty.Number || right.Type() != cty.Number {
		return cty.NilVal, errs.NewExecError(errs.TypeError, "", "arithmetic operator requires numeric operands")
	}
	switch op {
	case OpAdd:
		return left.Add(right), nil
	case OpSubtract:
		return left.Subtract(right), nil
	case OpMultiply:
		return left.Multiply(right), nil
	case OpDivide:
		if right.RawEquals(cty.NumberIntVal(0)) {
			return cty.NilVal, errs.NewExecError(errs.TypeError, "", "division by zero")
		}
		return left.Divide(right), nil
	}
	return cty.NilVal, fmt.Errorf("exprlang: unknown arithmetic operator %v", op)
}

// evalCompare implements ordering comparisons, using codepoint order for
// strings per §6.3.
func evalCompare(op BinaryOp, left, right cty.Value) (cty.Value, error) {
	var lt, gt bool
	switch {
	case left.Type() == cty.Number && right.Type() == cty.Number:
		lt = left.LessThan(right).True()
		gt = left.GreaterThan(right).True()
	case left.Type() == cty.String && right.Type() == cty.String:
		ls, rs := left.AsString(), right.AsString()
		lt = ls < rs
		gt = ls > rs
	default:
		return cty.NilVal, errs.NewExecError(errs.TypeError, "", "comparison requires two numbers or two strings")
	}
	switch op {
	case OpLessThan:
		return value.Bool(lt), nil
	case OpGreaterThan:
		return value.Bool(gt), nil
	case OpLessOrEqual:
		return value.Bool(lt || (!lt && !gt)), nil
	case OpGreaterOrEqual:
		return value.Bool(gt || (!lt && !gt)), nil
	}
	return cty.NilVal, fmt.Errorf("exprlang: unknown comparison operator %v", op)
}

// evalNavigation implements `source.property` for model-object references
// and, as a convenience for record-like collection values, plain objects.
func evalNavigation(n Navigation, ctx EvalContext) (cty.Value, error) {
	src, err := Evaluate(n.Source, ctx)
	if err != nil {
		return cty.NilVal, err
	}
	if value.IsNull(src) {
		return value.Null, nil
	}
	if src.Type().IsObjectType() {
		if !src.Type().HasAttribute(n.Property) {
			return cty.NilVal, errs.NewExecError(errs.TypeError, "", "no property %q on navigated value", n.Property)
		}
		return src.GetAttr(n.Property), nil
	}
	if obj, ok := value.AsModelObject(src); ok {
		nav, ok := obj.(value.Navigable)
		if !ok {
			return cty.NilVal, errs.NewExecError(errs.TypeError, "", "model object does not support property navigation")
		}
		raw, found := nav.Property(n.Property)
		if !found {
			return cty.NilVal, errs.NewExecError(errs.TypeError, "", "no property %q on model object", n.Property)
		}
		return value.FromNative(raw), nil
	}
	return cty.NilVal, errs.NewExecError(errs.TypeError, "", "cannot navigate property %q on a %s", n.Property, src.Type().FriendlyName())
}

func evalCall(n Call, ctx EvalContext) (cty.Value, error) {
	args := make([]cty.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Evaluate(a, ctx)
		if err != nil {
			return cty.NilVal, err
		}
		args[i] = v
	}
	return ctx.CallQuery(n.Name, args)
}

func evalCollectionOp(n CollectionOp, ctx EvalContext) (cty.Value, error) {
	src, err := Evaluate(n.Source, ctx)
	if err != nil {
		return cty.NilVal, err
	}
	elements, err := value.Elements(src)
	if err != nil {
		return cty.NilVal, err
	}

	switch n.Op {
	case "size":
		return value.Int(int64(len(elements))), nil
	case "isEmpty":
		return value.Bool(len(elements) == 0), nil
	case "notEmpty":
		return value.Bool(len(elements) != 0), nil
	case "first":
		if len(elements) == 0 {
			return value.Null, nil
		}
		return elements[0], nil
	case "last":
		if len(elements) == 0 {
			return value.Null, nil
		}
		return elements[len(elements)-1], nil
	case "select", "reject", "collect", "forAll", "exists", "any":
		return evalIteratingOp(n, elements, ctx)
	default:
		return cty.NilVal, errs.NewExecError(errs.InvalidOperation, n.Op, "unknown collection operation")
	}
}

func evalIteratingOp(n CollectionOp, elements []cty.Value, ctx EvalContext) (cty.Value, error) {
	iterName := n.Iterator
	if iterName == "" {
		iterName = "self"
	}

	var (
		kept    []cty.Value
		mapped  []cty.Value
		allTrue = true
		anyTrue = false
	)

	for _, el := range elements {
		ctx.PushScope()
		ctx.SetVariable(iterName, el)
		result, err := Evaluate(n.Body, ctx)
		ctx.PopScope()
		if err != nil {
			return cty.NilVal, err
		}

		switch n.Op {
		case "select":
			b, ok := value.Truthy(result)
			if ok && b {
				kept = append(kept, el)
			}
		case "reject":
			b, ok := value.Truthy(result)
			if !ok || !b {
				kept = append(kept, el)
			}
		case "collect":
			mapped = append(mapped, result)
		case "forAll":
			b, ok := value.Truthy(result)
			if !ok || !b {
				allTrue = false
			}
		case "exists":
			b, ok := value.Truthy(result)
			if ok && b {
				anyTrue = true
			}
		case "any":
			b, ok := value.Truthy(result)
			if ok && b {
				return el, nil
			}
		}
	}

	switch n.Op {
	case "select", "reject":
		return value.Sequence(kept), nil
	case "collect":
		return value.Sequence(mapped), nil
	case "forAll":
		return value.Bool(allTrue), nil
	case "exists":
		return value.Bool(anyTrue), nil
	case "any":
		return value.Null, nil
	}
	return cty.NilVal, fmt.Errorf("exprlang: unreachable collection op %q", n.Op)
}
