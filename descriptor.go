package typedconv

import "strings"

// Kind tags the canonical descriptor variant. Dispatch in the converter is a
// plain tag switch decided once at resolution time.
type Kind int

const (
	KindInvalid Kind = iota
	KindPrimitive
	KindRecord
	KindList
	KindDict
	KindTuple
	KindSet
	KindUnion
	KindAny
	KindNone
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	case KindTuple:
		return "tuple"
	case KindSet:
		return "set"
	case KindUnion:
		return "union"
	case KindAny:
		return "any"
	case KindNone:
		return "none"
	default:
		return "invalid"
	}
}

// Primitive enumerates the concrete scalar types.
type Primitive int

const (
	PrimBool Primitive = iota
	PrimInt
	PrimFloat
	PrimString
	PrimPath
)

func (p Primitive) String() string {
	switch p {
	case PrimBool:
		return "bool"
	case PrimInt:
		return "int"
	case PrimFloat:
		return "float"
	case PrimString:
		return "str"
	case PrimPath:
		return "Path"
	default:
		return "invalid"
	}
}

// Descriptor is the canonical, immutable description of an expected type.
// Optional never exists as its own variant: Optional[T] resolves to
// union(T, none).
type Descriptor struct {
	Kind   Kind
	Prim   Primitive     // Kind == KindPrimitive.
	Record *RecordSchema // Kind == KindRecord.
	// Elems holds nested descriptors: one for list/set, two for dict
	// (key, value), N for tuple arities and union alternatives.
	Elems []*Descriptor
	// Variadic marks tuple[T, ...]: homogeneous, any length.
	Variadic bool
}

// String renders the descriptor in canonical expression form, e.g.
// "list[int]", "dict[str, float]", "int | None".
func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	switch d.Kind {
	case KindPrimitive:
		return d.Prim.String()
	case KindRecord:
		if d.Record != nil {
			return d.Record.Name
		}
		return "record"
	case KindList:
		return "list[" + d.Elems[0].String() + "]"
	case KindSet:
		return "set[" + d.Elems[0].String() + "]"
	case KindDict:
		return "dict[" + d.Elems[0].String() + ", " + d.Elems[1].String() + "]"
	case KindTuple:
		if d.Variadic {
			return "tuple[" + d.Elems[0].String() + ", ...]"
		}
		parts := make([]string, len(d.Elems))
		for i, e := range d.Elems {
			parts[i] = e.String()
		}
		return "tuple[" + strings.Join(parts, ", ") + "]"
	case KindUnion:
		parts := make([]string, len(d.Elems))
		for i, e := range d.Elems {
			parts[i] = e.String()
		}
		return strings.Join(parts, " | ")
	case KindAny:
		return "Any"
	case KindNone:
		return "None"
	default:
		return "invalid"
	}
}

// ---- constructors ----

func Bool() *Descriptor   { return &Descriptor{Kind: KindPrimitive, Prim: PrimBool} }
func Int() *Descriptor    { return &Descriptor{Kind: KindPrimitive, Prim: PrimInt} }
func Float() *Descriptor  { return &Descriptor{Kind: KindPrimitive, Prim: PrimFloat} }
func String() *Descriptor { return &Descriptor{Kind: KindPrimitive, Prim: PrimString} }

// PathType describes the filesystem-path primitive.
func PathType() *Descriptor { return &Descriptor{Kind: KindPrimitive, Prim: PrimPath} }

// AnyType matches everything and passes values through unconverted.
func AnyType() *Descriptor { return &Descriptor{Kind: KindAny} }

// NoneType matches only nil/absence.
func NoneType() *Descriptor { return &Descriptor{Kind: KindNone} }

// ListOf describes a homogeneous ordered container.
func ListOf(elem *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindList, Elems: []*Descriptor{elem}}
}

// SetOf describes an unordered container of unique elements.
func SetOf(elem *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindSet, Elems: []*Descriptor{elem}}
}

// DictOf describes a mapping with converted keys and values.
func DictOf(key, value *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindDict, Elems: []*Descriptor{key, value}}
}

// TupleOf describes a fixed-arity sequence; input length must equal the
// number of element descriptors.
func TupleOf(elems ...*Descriptor) *Descriptor {
	return &Descriptor{Kind: KindTuple, Elems: elems}
}

// VariadicTupleOf describes tuple[T, ...]: any length, homogeneous elements.
func VariadicTupleOf(elem *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindTuple, Elems: []*Descriptor{elem}, Variadic: true}
}

// UnionOf describes alternatives tried in declaration order.
func UnionOf(alts ...*Descriptor) *Descriptor {
	return &Descriptor{Kind: KindUnion, Elems: alts}
}

// OptionalOf is union(elem, none): the canonical Optional representation.
func OptionalOf(elem *Descriptor) *Descriptor {
	return UnionOf(elem, NoneType())
}

// RecordOf wraps a record schema as a descriptor.
func RecordOf(rs *RecordSchema) *Descriptor {
	return &Descriptor{Kind: KindRecord, Record: rs}
}
