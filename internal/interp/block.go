package interp

import (
	"reflect"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/m2t/internal/ast"
)

// blockType is the capsule type used to pass an inline Block captured at a
// macro invocation site as a first-class value bound to the macro's
// body-parameter (§9, "Block-as-value"). The interpreter recognises a
// variable reference resolving to one of these and executes the block in
// place, instead of writing a canonical string form (which a block has
// none of).
var blockType = cty.Capsule("block", reflect.TypeOf((*ast.Block)(nil)))

// BlockVal wraps b as a value.
func BlockVal(b *ast.Block) cty.Value {
	return cty.CapsuleVal(blockType, &b)
}

// AsBlock unwraps a value produced by BlockVal, if it is one.
func AsBlock(v cty.Value) (*ast.Block, bool) {
	if v == cty.NilVal || v.IsNull() || !v.Type().IsCapsuleType() || !v.Type().Equals(blockType) {
		return nil, false
	}
	ptr := v.EncapsulatedValue().(**ast.Block)
	return *ptr, true
}
