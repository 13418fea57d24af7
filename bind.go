package typedconv

import (
	"context"
	"reflect"
	"strconv"
	"strings"

	"github.com/reoring/typedconv/i18n"
)

// resolveFieldKey applies the repository-wide rule to resolve a struct
// field's external key used by struct decomposition, binding, and derived
// schemas. Priority: conv:"name=..." > json tag name > field name; "-"
// disables the field; conv:",extras" marks the extras target.
func resolveFieldKey(sf reflect.StructField) (string, bool) {
	var key string
	var extras bool
	if ct := sf.Tag.Get("conv"); ct != "" {
		if ct == "-" {
			return "-", false
		}
		for _, p := range strings.Split(ct, ",") {
			p = strings.TrimSpace(p)
			switch {
			case strings.HasPrefix(p, "name="):
				key = strings.TrimPrefix(p, "name=")
			case p == "extras":
				extras = true
			}
		}
	}
	if key == "" {
		if jt := sf.Tag.Get("json"); jt != "" {
			if jt == "-" {
				return "-", extras
			}
			if i := strings.IndexByte(jt, ','); i >= 0 {
				jt = jt[:i]
			}
			key = jt
		}
	}
	if key == "" {
		key = sf.Name
	}
	return key, extras
}

// structAsMap decomposes a struct (or pointer to struct) into a mapping
// keyed by resolved field keys, so existing typed values re-validate through
// the same per-field walk as raw mappings.
func structAsMap(v any) (map[string]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		key, extras := resolveFieldKey(sf)
		if key == "-" {
			continue
		}
		if extras {
			if m, ok := rv.Field(i).Interface().(map[string]any); ok {
				for k, val := range m {
					out[k] = val
				}
			}
			continue
		}
		out[key] = rv.Field(i).Interface()
	}
	return out, true
}

// MaterializeAs materializes and binds the instance into struct T.
func MaterializeAs[T any](ctx context.Context, rs *RecordSchema, v any, opt Options) (T, error) {
	var zero T
	inst, err := Materialize(ctx, rs, v, opt)
	if err != nil {
		return zero, err
	}
	if inst == nil {
		return zero, nil
	}
	return Bind[T](inst)
}

// Bind reflects a materialized instance into struct T using tag-resolved
// keys. Unset fields keep their zero value; attached extras land in a
// conv:",extras" tagged map[string]any field when one exists.
func Bind[T any](inst *Instance) (T, error) {
	var zero T
	rt := reflect.TypeOf((*T)(nil)).Elem()
	wantPtr := false
	if rt.Kind() == reflect.Pointer {
		wantPtr = true
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return zero, Issues{Issue{
			Path:    "/",
			Code:    CodeUnsupportedType,
			Message: i18n.T(CodeUnsupportedType, nil),
			Hint:    "Bind requires a struct type",
			Actual:  rt.String(),
		}}
	}
	rv := reflect.New(rt).Elem()
	if iss := bindInto(rv, inst, ""); len(iss) > 0 {
		return zero, iss
	}
	if wantPtr {
		return rv.Addr().Interface().(T), nil
	}
	return rv.Interface().(T), nil
}

func bindInto(rv reflect.Value, inst *Instance, path string) Issues {
	rt := rv.Type()
	var iss Issues
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		key, extras := resolveFieldKey(sf)
		if key == "-" {
			continue
		}
		fv := rv.Field(i)
		if extras {
			if len(inst.Extras()) == 0 {
				continue
			}
			if fv.Type() != reflect.TypeOf(map[string]any(nil)) {
				iss = AppendIssues(iss, Issue{
					Path:    issuePath(path + "/" + key),
					Code:    CodeUnsupportedType,
					Message: i18n.T(CodeUnsupportedType, nil),
					Hint:    "extras field must be map[string]any",
					Actual:  fv.Type().String(),
				})
				continue
			}
			m := make(map[string]any, len(inst.Extras()))
			for k, val := range inst.Extras() {
				m[k] = val
			}
			fv.Set(reflect.ValueOf(m))
			continue
		}
		val, ok := inst.Get(key)
		if !ok {
			continue
		}
		iss = AppendIssues(iss, assignValue(fv, val, path+"/"+key)...)
	}
	return iss
}

// assignValue writes a converted value into a struct field, descending into
// pointers, slices, maps, and nested record instances.
func assignValue(fv reflect.Value, val any, path string) Issues {
	if val == nil {
		switch fv.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			fv.Set(reflect.Zero(fv.Type()))
		}
		return nil
	}
	if nested, ok := val.(*Instance); ok {
		switch {
		case fv.Kind() == reflect.Struct:
			return bindInto(fv, nested, path)
		case fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.Struct:
			pv := reflect.New(fv.Type().Elem())
			if iss := bindInto(pv.Elem(), nested, path); len(iss) > 0 {
				return iss
			}
			fv.Set(pv)
			return nil
		}
	}
	vv := reflect.ValueOf(val)
	if vv.Type().AssignableTo(fv.Type()) {
		fv.Set(vv)
		return nil
	}
	if sameConvClass(vv.Kind(), fv.Kind()) && vv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(vv.Convert(fv.Type()))
		return nil
	}
	switch fv.Kind() {
	case reflect.Pointer:
		pv := reflect.New(fv.Type().Elem())
		if iss := assignValue(pv.Elem(), val, path); len(iss) > 0 {
			return iss
		}
		fv.Set(pv)
		return nil
	case reflect.Slice:
		if elems, ok := val.([]any); ok {
			sv := reflect.MakeSlice(fv.Type(), len(elems), len(elems))
			for i, ev := range elems {
				if iss := assignValue(sv.Index(i), ev, path+"/"+strconv.Itoa(i)); len(iss) > 0 {
					return iss
				}
			}
			fv.Set(sv)
			return nil
		}
	case reflect.Map:
		if entries, ok := entriesOf(val); ok {
			mv := reflect.MakeMapWithSize(fv.Type(), len(entries))
			kt, vt := fv.Type().Key(), fv.Type().Elem()
			for _, e := range entries {
				kv := reflect.New(kt).Elem()
				if iss := assignValue(kv, e.key, path); len(iss) > 0 {
					return iss
				}
				ev := reflect.New(vt).Elem()
				if iss := assignValue(ev, e.value, path+"/"+keySegment(e.key)); len(iss) > 0 {
					return iss
				}
				mv.SetMapIndex(kv, ev)
			}
			fv.Set(mv)
			return nil
		}
	}
	return Issues{Issue{
		Path:     issuePath(path),
		Code:     CodeTypeMismatch,
		Message:  i18n.T(CodeTypeMismatch, nil),
		Expected: fv.Type().String(),
		Actual:   shortValue(val),
	}}
}

// sameConvClass guards reflect conversions: only within-class conversions
// (numeric to numeric, string to string) are meaningful here. Go would also
// happily convert int64 to string, which is never what a schema means.
func sameConvClass(a, b reflect.Kind) bool {
	return convClass(a) != 0 && convClass(a) == convClass(b)
}

func convClass(k reflect.Kind) int {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return 1
	case reflect.String:
		return 2
	default:
		return 0
	}
}

// StructSchema derives a record schema from struct type T and registers it
// in the scope: pointer fields become Optional with a nil default, nested
// structs are derived recursively, and a conv:",extras" field enables the
// extras capability.
func StructSchema[T any](scope Scope) (*RecordSchema, error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if scope == nil {
		scope = NewScope()
	}
	return structSchemaFromType(rt, scope)
}

// MustStructSchema is StructSchema panicking on error, for definition sites.
func MustStructSchema[T any](scope Scope) *RecordSchema {
	rs, err := StructSchema[T](scope)
	if err != nil {
		panic(err)
	}
	return rs
}

func structSchemaFromType(rt reflect.Type, scope Scope) (*RecordSchema, error) {
	if rt.Kind() != reflect.Struct {
		return nil, Issues{Issue{
			Path:    "/",
			Code:    CodeUnsupportedType,
			Message: i18n.T(CodeUnsupportedType, nil),
			Actual:  rt.String(),
			Hint:    "schema derivation requires a struct type",
		}}
	}
	if rs, ok := scope[rt.Name()]; ok {
		return rs, nil
	}
	rs := Record(rt.Name())
	// register before walking fields so self-references terminate
	scope.Register(rs)
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		key, extras := resolveFieldKey(sf)
		if key == "-" {
			continue
		}
		if extras {
			rs.WithExtras()
			continue
		}
		desc, err := descriptorForType(sf.Type, scope)
		if err != nil {
			return nil, rebase("/"+key, issuesFromErr("/", err))
		}
		if sf.Type.Kind() == reflect.Pointer {
			rs.FieldDefault(key, desc, nil)
			continue
		}
		rs.Field(key, desc)
	}
	return rs, nil
}

func descriptorForType(t reflect.Type, scope Scope) (*Descriptor, error) {
	switch t.Kind() {
	case reflect.Bool:
		return Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int(), nil
	case reflect.Float32, reflect.Float64:
		return Float(), nil
	case reflect.String:
		if t == reflect.TypeOf(Path("")) {
			return PathType(), nil
		}
		return String(), nil
	case reflect.Interface:
		return AnyType(), nil
	case reflect.Pointer:
		inner, err := descriptorForType(t.Elem(), scope)
		if err != nil {
			return nil, err
		}
		return OptionalOf(inner), nil
	case reflect.Slice, reflect.Array:
		inner, err := descriptorForType(t.Elem(), scope)
		if err != nil {
			return nil, err
		}
		return ListOf(inner), nil
	case reflect.Map:
		kd, err := descriptorForType(t.Key(), scope)
		if err != nil {
			return nil, err
		}
		vd, err := descriptorForType(t.Elem(), scope)
		if err != nil {
			return nil, err
		}
		return DictOf(kd, vd), nil
	case reflect.Struct:
		rs, err := structSchemaFromType(t, scope)
		if err != nil {
			return nil, err
		}
		return RecordOf(rs), nil
	default:
		return nil, Issues{Issue{
			Path:    "/",
			Code:    CodeUnsupportedType,
			Message: i18n.T(CodeUnsupportedType, nil),
			Actual:  t.String(),
		}}
	}
}
