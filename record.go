package typedconv

// FieldSpec describes one declared record field: its key in the raw mapping,
// its type expression (string, *Descriptor, or *RecordSchema), and an
// optional default that is applied as-is when the key is absent.
type FieldSpec struct {
	Name       string
	Type       any
	HasDefault bool
	Default    any
}

// RecordSchema describes a target record type: an ordered field list plus the
// unknown-key policy and the extras capability. Schemas are defined once,
// registered in a Scope, and treated as read-only afterwards.
type RecordSchema struct {
	Name   string
	Fields []FieldSpec
	// AllowExtraKeys admits unknown keys even in strict mode.
	AllowExtraKeys bool
	// DynamicExtras permits attaching unknown keys to the materialized
	// instance. Without it, admitted unknown keys are dropped.
	DynamicExtras bool

	scope Scope
}

// Record starts a record schema definition.
func Record(name string) *RecordSchema {
	return &RecordSchema{Name: name}
}

// Field appends a required field.
func (rs *RecordSchema) Field(name string, typ any) *RecordSchema {
	rs.Fields = append(rs.Fields, FieldSpec{Name: name, Type: typ})
	return rs
}

// FieldDefault appends a field with a default used when the key is absent.
// Defaults are taken verbatim; they are not run through the converter.
func (rs *RecordSchema) FieldDefault(name string, typ any, def any) *RecordSchema {
	rs.Fields = append(rs.Fields, FieldSpec{Name: name, Type: typ, HasDefault: true, Default: def})
	return rs
}

// AllowExtra admits unknown input keys even under strict conversion.
func (rs *RecordSchema) AllowExtra() *RecordSchema {
	rs.AllowExtraKeys = true
	return rs
}

// WithExtras enables attaching admitted unknown keys to the instance.
func (rs *RecordSchema) WithExtras() *RecordSchema {
	rs.DynamicExtras = true
	return rs
}

// resolveFieldType normalizes the field's type expression against the scope
// the schema was registered in.
func (rs *RecordSchema) resolveFieldType(f FieldSpec) (*Descriptor, error) {
	return rs.scope.Resolve(f.Type)
}

func (rs *RecordSchema) declared(name string) bool {
	for i := range rs.Fields {
		if rs.Fields[i].Name == name {
			return true
		}
	}
	return false
}
