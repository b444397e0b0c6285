// Package value defines the polymorphic runtime Value (§3) carried by
// variable bindings and produced by expression evaluation. It is built on
// zclconf/go-cty, the value system the teacher uses to bridge its own
// expression language to Go: null, boolean, number, string, an ordered
// dynamic collection (cty.Tuple, since elements may be heterogeneous), and
// an opaque model-object reference (a cty capsule type).
package value

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// ModelObjectType is the capsule type used to smuggle opaque model-object
// references (§6.4) through the value system without the core ever needing
// to know their shape.
var ModelObjectType = cty.Capsule("model-object", reflect.TypeOf((*any)(nil)).Elem())

// Null is the null value.
var Null = cty.NullVal(cty.DynamicPseudoType)

// Bool wraps a boolean.
func Bool(b bool) cty.Value { return cty.BoolVal(b) }

// Int wraps an integer.
func Int(i int64) cty.Value { return cty.NumberIntVal(i) }

// Real wraps a floating-point number.
func Real(f float64) cty.Value { return cty.NumberFloatVal(f) }

// String wraps a string.
func String(s string) cty.Value { return cty.StringVal(s) }

// Sequence wraps an ordered collection of values. An empty sequence is
// represented as an empty tuple.
func Sequence(vals []cty.Value) cty.Value {
	if len(vals) == 0 {
		return cty.EmptyTupleVal
	}
	return cty.TupleVal(vals)
}

// ModelObject wraps an opaque model-object reference.
func ModelObject(ref any) cty.Value {
	return cty.CapsuleVal(ModelObjectType, &ref)
}

// AsModelObject unwraps a value produced by ModelObject, if it is one.
func AsModelObject(v cty.Value) (any, bool) {
	if v.IsNull() || !v.Type().IsCapsuleType() || !v.Type().Equals(ModelObjectType) {
		return nil, false
	}
	ptr := v.EncapsulatedValue().(*any)
	return *ptr, true
}

// Navigable is implemented by opaque model-object references that expose
// named properties, letting `source.property` (§6.2) reach into data
// loaded from an imported model (§6.4) without the core ever needing to
// know the model's concrete shape.
type Navigable interface {
	Property(name string) (any, bool)
}

// nativeMap adapts a decoded map[string]any (typical YAML/JSON model
// content) to Navigable.
type nativeMap map[string]any

func (m nativeMap) Property(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// FromNative converts a decoded native Go value into a runtime Value.
// Maps and Navigable values become navigable model objects so property
// access keeps working through arbitrary nesting depth; other unrecognised
// values become opaque (non-navigable) model objects; slices become
// sequences of recursively-converted elements.
func FromNative(v any) cty.Value {
	switch t := v.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		return Real(t)
	case []any:
		vals := make([]cty.Value, len(t))
		for i, e := range t {
			vals[i] = FromNative(e)
		}
		return Sequence(vals)
	case map[string]any:
		return ModelObject(nativeMap(t))
	case Navigable:
		return ModelObject(t)
	default:
		return ModelObject(t)
	}
}

// IsNull reports whether v is the null value.
func IsNull(v cty.Value) bool {
	return v == cty.NilVal || v.IsNull()
}

// IsCollection reports whether v is an ordered/keyed collection (tuple,
// list, set, or map).
func IsCollection(v cty.Value) bool {
	if IsNull(v) {
		return false
	}
	ty := v.Type()
	return ty.IsTupleType() || ty.IsListType() || ty.IsSetType() || ty.IsMapType() || ty.IsObjectType()
}

// Truthy evaluates v as a Boolean condition per §4.8: a non-boolean or null
// value "does not match" (ok is false); a boolean value returns its literal
// truth (ok is true).
func Truthy(v cty.Value) (result, ok bool) {
	if IsNull(v) || v.Type() != cty.Bool || !v.IsKnown() {
		return false, false
	}
	return v.True(), true
}

// Elements returns v's members as an ordered slice, implementing the For
// statement's collection-coercion rule (§4.8): null becomes the empty
// sequence, a single non-null non-collection value becomes a one-element
// sequence, and a collection yields its elements in iteration order.
func Elements(v cty.Value) ([]cty.Value, error) {
	if IsNull(v) {
		return nil, nil
	}
	if !IsCollection(v) {
		return []cty.Value{v}, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("value: cannot iterate an unknown collection")
	}
	var out []cty.Value
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		out = append(out, ev)
	}
	return out, nil
}

// CanonicalString renders v using the canonical textual form used for
// template output (§3, §4.8's Expression/For-separator statement rules).
func CanonicalString(v cty.Value) (string, error) {
	if IsNull(v) {
		return "", nil
	}
	if obj, ok := AsModelObject(v); ok {
		return fmt.Sprintf("%v", obj), nil
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		if v.True() {
			return "true", nil
		}
		return "false", nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return strconv.FormatInt(i, 10), nil
		}
		return strings.TrimRight(strings.TrimRight(bf.Text('f', -1), "0"), "."), nil
	}
	if IsCollection(v) {
		parts, err := Elements(v)
		if err != nil {
			return "", err
		}
		strs := make([]string, len(parts))
		for i, p := range parts {
			s, err := CanonicalString(p)
			if err != nil {
				return "", err
			}
			strs[i] = s
		}
		return strings.Join(strs, ", "), nil
	}
	return "", fmt.Errorf("value: no canonical string form for type %s", v.Type().FriendlyName())
}

// Equal reports whether a and b are the same value, using codepoint order
// for strings as required by §6.3.
func Equal(a, b cty.Value) (bool, error) {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b), nil
	}
	if a.Type() != b.Type() {
		return false, nil
	}
	result := a.Equals(b)
	return result.True(), nil
}
