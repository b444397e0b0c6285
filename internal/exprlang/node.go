// Package exprlang defines the expression sublanguage's AST node shapes
// (§4.5, §6.3) and the default evaluator that walks them. The interpreter
// (internal/interp) never inspects a Node directly: it only calls Evaluate
// through the narrow EvalContext contract described in §6.3, keeping the
// evaluator swappable in principle even though this repository ships one
// concrete implementation.
package exprlang

import "github.com/zclconf/go-cty/cty"

// Node is any expression AST node produced by the parser.
type Node interface {
	exprNode()
}

// Literal is a constant value.
type Literal struct {
	Value cty.Value
}

func (Literal) exprNode() {}

// VariableRef looks up a bound variable by name.
type VariableRef struct {
	Name string
}

func (VariableRef) exprNode() {}

// BinaryOp is the fixed operator set of §6.3.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpAnd
	OpOr
	OpEquals
	OpNotEquals
	OpLessThan
	OpGreaterThan
	OpLessOrEqual
	OpGreaterOrEqual
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpEquals:
		return "="
	case OpNotEquals:
		return "<>"
	case OpLessThan:
		return "<"
	case OpGreaterThan:
		return ">"
	case OpLessOrEqual:
		return "<="
	case OpGreaterOrEqual:
		return ">="
	default:
		return "?"
	}
}

// Binary combines two operands with an operator.
type Binary struct {
	Op          BinaryOp
	Left, Right Node
}

func (Binary) exprNode() {}

// Navigation dereferences a property on the result of Source, e.g.
// `source.property`.
type Navigation struct {
	Source   Node
	Property string
}

func (Navigation) exprNode() {}

// CollectionOp is `source->op[(iter | body)]`. Iterator is the loop
// variable name bound while evaluating Body, empty when the operation takes
// no argument (size, isEmpty, notEmpty, first, last).
type CollectionOp struct {
	Source   Node
	Op       string
	Iterator string
	Body     Node // nil for argument-less operations
}

func (CollectionOp) exprNode() {}

// Call invokes a named query by value, evaluating each argument left to
// right before delegating to the host context. A dotted invocation
// `source.name(args)` desugars at parse time into Call{Name: name, Args:
// [source, args...]}, so a query's first parameter plays the role of an
// implicit receiver — the same convention the AQL/OCL vocabulary already
// uses for `->select`-style operations.
type Call struct {
	Name string
	Args []Node
}

func (Call) exprNode() {}

// Paren is a parenthesised sub-expression. It exists as a distinct node
// (rather than being elided by the parser) purely to support the
// parser-printer stability property (§8, Property 6): reprinting must be
// able to reproduce the original grouping.
type Paren struct {
	Inner Node
}

func (Paren) exprNode() {}
