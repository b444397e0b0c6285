// Package ast is the data model (C6) built by the parser: Module, Template,
// Query, Macro, statement variants, and the supporting Variable/Binding/
// Block types of §3. Values here are immutable once the parser returns
// them.
package ast

import (
	"github.com/vk/m2t/internal/exprlang"
	"github.com/vk/m2t/internal/ordmap"
)

// Expression is the opaque wrapper around an expression-language node
// (§3): the core only ever calls exprlang.Evaluate on it through the
// interpreter, never inspects its shape.
type Expression struct {
	Node exprlang.Node
}

// Variable is a (name, declared type) pair.
type Variable struct {
	Name string
	Type string
}

// Binding couples a Variable to its initialising expression, as used by Let
// statements. Template/query/macro parameter lists hold plain Variables.
type Binding struct {
	Var  Variable
	Init Expression
}

// Visibility is a Template's or Query's declared visibility.
type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return "public"
	}
}

// Template is a named, parameterised text-producing unit (§3).
type Template struct {
	Name       string
	Visibility Visibility
	Parameters []Variable
	Guard      *Expression
	Post       *Expression
	Body       Block
	IsMain     bool
	Overrides  string
	Doc        string
}

// Query is a side-effect-free, named computation (§3).
type Query struct {
	Name       string
	Visibility Visibility
	Parameters []Variable
	ReturnType string
	Body       Expression
	Doc        string
}

// Macro captures an inline block from its call site via an optional
// body-parameter (§3, §9 "Block-as-value").
type Macro struct {
	Name          string
	Parameters    []Variable
	BodyParameter string // empty when the macro takes no inline block
	Body          Block
	Doc           string
}

// Module is the top-level parsed artifact (§3). Immutable after
// construction by the parser.
type Module struct {
	Name            string
	Metamodels      *ordmap.Map[string] // alias -> metamodel package URI
	Extends         string              // unresolved metadata; see Open Question (c)
	Imports         []string            // unresolved metadata; see Open Question (c)
	Templates       *ordmap.Map[*Template]
	Queries         *ordmap.Map[*Query]
	Macros          *ordmap.Map[*Macro]
	DefaultEncoding string
}

// NewModule returns an empty Module named name, with UTF-8 as the default
// encoding (§3).
func NewModule(name string) *Module {
	return &Module{
		Name:            name,
		Metamodels:      ordmap.New[string](),
		Templates:       ordmap.New[*Template](),
		Queries:         ordmap.New[*Query](),
		Macros:          ordmap.New[*Macro](),
		DefaultEncoding: "UTF-8",
	}
}

// MainTemplate implements the auto-detect policy of §6.5: the first
// isMain template in insertion order, else the first template in insertion
// order, else (nil, false).
func (m *Module) MainTemplate() (*Template, bool) {
	templates := m.Templates.Values()
	for _, t := range templates {
		if t.IsMain {
			return t, true
		}
	}
	if len(templates) > 0 {
		return templates[0], true
	}
	return nil, false
}
