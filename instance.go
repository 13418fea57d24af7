package typedconv

import (
	"fmt"
	"sort"
	"strings"
)

// Instance is a materialized record: converted values for the declared
// fields, plus attached extras when the schema permits them. Fields without
// a value (non-strict mode, absent key, no default) stay unset.
type Instance struct {
	schema  *RecordSchema
	values  map[string]any
	present map[string]bool
	extras  map[string]any
}

func newInstance(rs *RecordSchema) *Instance {
	return &Instance{
		schema:  rs,
		values:  make(map[string]any, len(rs.Fields)),
		present: make(map[string]bool, len(rs.Fields)),
	}
}

// Schema returns the record schema this instance was materialized from.
func (in *Instance) Schema() *RecordSchema { return in.schema }

// Get returns the value of a declared field and whether it is set.
func (in *Instance) Get(name string) (any, bool) {
	if !in.present[name] {
		return nil, false
	}
	return in.values[name], true
}

// Set assigns a declared field. Assigning an undeclared name requires the
// schema's extras capability.
func (in *Instance) Set(name string, v any) error {
	if in.schema.declared(name) {
		in.set(name, v)
		return nil
	}
	if !in.schema.DynamicExtras {
		return Issues{Issue{
			Path:    "/" + name,
			Code:    CodeUnknownField,
			Message: fmt.Sprintf("field %q is not declared on %s and the schema does not permit extras", name, in.schema.Name),
		}}
	}
	in.setExtra(name, v)
	return nil
}

func (in *Instance) set(name string, v any) {
	in.values[name] = v
	in.present[name] = true
}

func (in *Instance) setExtra(name string, v any) {
	if in.extras == nil {
		in.extras = map[string]any{}
	}
	in.extras[name] = v
}

// Extras returns the attached unknown fields; nil when none were attached.
func (in *Instance) Extras() map[string]any { return in.extras }

// AsMap returns the set declared fields plus extras as a plain mapping,
// suitable for feeding back into Materialize (round-trip) or re-validation.
// Nested record values stay as *Instance.
func (in *Instance) AsMap() map[string]any {
	out := make(map[string]any, len(in.values)+len(in.extras))
	for _, f := range in.schema.Fields {
		if in.present[f.Name] {
			out[f.Name] = in.values[f.Name]
		}
	}
	for k, v := range in.extras {
		out[k] = v
	}
	return out
}

// String renders the instance as Name(field=value, ...) in declaration order.
func (in *Instance) String() string {
	b := &strings.Builder{}
	b.WriteString(in.schema.Name)
	b.WriteString("(")
	first := true
	for _, f := range in.schema.Fields {
		if !in.present[f.Name] {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(b, "%s=%v", f.Name, in.values[f.Name])
	}
	if len(in.extras) > 0 {
		eks := make([]string, 0, len(in.extras))
		for k := range in.extras {
			eks = append(eks, k)
		}
		sort.Strings(eks)
		for _, k := range eks {
			if !first {
				b.WriteString(", ")
			}
			first = false
			fmt.Fprintf(b, "%s=%v", k, in.extras[k])
		}
	}
	b.WriteString(")")
	return b.String()
}
