package typedconv_test

import (
	"context"
	"reflect"
	"testing"

	typedconv "github.com/reoring/typedconv"
)

func cfgSchema() *typedconv.RecordSchema {
	return typedconv.Record("Cfg").
		Field("foo", "int").
		FieldDefault("bar", "Optional[int]", nil)
}

func TestMaterialize_Basic(t *testing.T) {
	ctx := context.Background()
	inst, err := typedconv.Materialize(ctx, cfgSchema(), map[string]any{"foo": 1, "bar": 2}, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if v, ok := inst.Get("foo"); !ok || v != int64(1) {
		t.Fatalf("foo: got %v, %v", v, ok)
	}
	if v, ok := inst.Get("bar"); !ok || v != int64(2) {
		t.Fatalf("bar: got %v, %v", v, ok)
	}
	if got := inst.String(); got != "Cfg(foo=1, bar=2)" {
		t.Fatalf("unexpected String(): %q", got)
	}
}

func TestMaterialize_DefaultApplied(t *testing.T) {
	inst, err := typedconv.Materialize(context.Background(), cfgSchema(), map[string]any{"foo": 1}, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	v, ok := inst.Get("bar")
	if !ok || v != nil {
		t.Fatalf("expected bar set to its nil default, got %v, %v", v, ok)
	}
}

func TestMaterialize_MissingField(t *testing.T) {
	ctx := context.Background()

	_, err := typedconv.Materialize(ctx, cfgSchema(), map[string]any{}, typedconv.DefaultOptions())
	is := wantIssue(t, err, typedconv.CodeMissingField, "/foo")
	if is.Expected != "int" {
		t.Fatalf("expected the descriptor in Expected, got %q", is.Expected)
	}

	// non-strict mode leaves the field unset
	inst, err := typedconv.Materialize(ctx, cfgSchema(), map[string]any{}, typedconv.NonStrict())
	if err != nil {
		t.Fatalf("non-strict: %v", err)
	}
	if _, ok := inst.Get("foo"); ok {
		t.Fatalf("expected foo unset")
	}
}

func TestMaterialize_NestedErrorPaths(t *testing.T) {
	scope := typedconv.NewScope()
	scope.Register(typedconv.Record("Sub").Field("foo", "int"))
	outer := scope.Register(typedconv.Record("Outer").Field("sub", "Sub").Field("names", "list[str]"))

	in := map[string]any{
		"sub":   map[string]any{"foo": "bad"},
		"names": []any{"ok", 5},
	}
	_, err := typedconv.Materialize(context.Background(), outer, in, typedconv.DefaultOptions())
	wantIssue(t, err, typedconv.CodeTypeMismatch, "/sub/foo")
	wantIssue(t, err, typedconv.CodeTypeMismatch, "/names/1")
}

func TestMaterialize_CompletenessAccumulatesAllFieldFailures(t *testing.T) {
	rs := typedconv.Record("Multi").
		Field("a", "int").
		Field("b", "int").
		Field("c", "int")
	in := map[string]any{"a": "x", "b": "y", "c": "z"}

	_, err := typedconv.Materialize(context.Background(), rs, in, typedconv.DefaultOptions())
	iss, ok := typedconv.AsIssues(err)
	if !ok || len(iss) != 3 {
		t.Fatalf("expected 3 issues, got %v", err)
	}
}

func TestMaterialize_UnknownKeyPolicy(t *testing.T) {
	ctx := context.Background()
	in := map[string]any{"foo": 1, "ghost": true}

	// strict default: rejected per key
	_, err := typedconv.Materialize(ctx, cfgSchema(), in, typedconv.DefaultOptions())
	is := wantIssue(t, err, typedconv.CodeUnknownField, "/ghost")
	if is.Hint == "" {
		t.Fatalf("expected the declared field list in the hint")
	}

	// SkipUnknowns: silently dropped
	opt := typedconv.DefaultOptions()
	opt.SkipUnknowns = true
	inst, err := typedconv.Materialize(ctx, cfgSchema(), in, opt)
	if err != nil {
		t.Fatalf("skip unknowns: %v", err)
	}
	if inst.Extras() != nil {
		t.Fatalf("expected no extras, got %v", inst.Extras())
	}

	// AllowExtra without the extras capability: admitted but dropped
	rs := typedconv.Record("Cfg").Field("foo", "int").AllowExtra()
	inst, err = typedconv.Materialize(ctx, rs, in, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("allow extra: %v", err)
	}
	if inst.Extras() != nil {
		t.Fatalf("expected extras dropped, got %v", inst.Extras())
	}

	// AllowExtra plus WithExtras: attached
	rs = typedconv.Record("Cfg").Field("foo", "int").AllowExtra().WithExtras()
	inst, err = typedconv.Materialize(ctx, rs, in, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("with extras: %v", err)
	}
	if !reflect.DeepEqual(inst.Extras(), map[string]any{"ghost": true}) {
		t.Fatalf("expected ghost attached, got %v", inst.Extras())
	}
}

func TestMaterialize_RoundTripThroughAsMap(t *testing.T) {
	ctx := context.Background()
	rs := cfgSchema()
	first, err := typedconv.Materialize(ctx, rs, map[string]any{"foo": 1}, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := typedconv.Materialize(ctx, rs, first.AsMap(), typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !reflect.DeepEqual(first.AsMap(), second.AsMap()) {
		t.Fatalf("round trip drifted: %v vs %v", first.AsMap(), second.AsMap())
	}

	// an instance is itself acceptable input: field-by-field re-validation
	third, err := typedconv.Materialize(ctx, rs, first, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("re-validate: %v", err)
	}
	if !reflect.DeepEqual(first.AsMap(), third.AsMap()) {
		t.Fatalf("re-validation drifted: %v vs %v", first.AsMap(), third.AsMap())
	}
}

func TestMaterialize_RootRejectsNonRecords(t *testing.T) {
	ctx := context.Background()
	for _, opt := range []typedconv.Options{typedconv.DefaultOptions(), typedconv.NonStrict()} {
		_, err := typedconv.Materialize(ctx, cfgSchema(), "not a mapping", opt)
		wantIssue(t, err, typedconv.CodeTypeMismatch, "/")
	}

	// nil root in non-strict mode means "no value at all"
	inst, err := typedconv.Materialize(ctx, cfgSchema(), nil, typedconv.NonStrict())
	if err != nil {
		t.Fatalf("nil non-strict: %v", err)
	}
	if inst != nil {
		t.Fatalf("expected nil instance, got %v", inst)
	}
}

func TestMaterialize_NonStrictPassesRawValuesThrough(t *testing.T) {
	rs := typedconv.Record("Cfg").Field("foo", "int")
	inst, err := typedconv.Materialize(context.Background(), rs, map[string]any{"foo": "raw"}, typedconv.NonStrict())
	if err != nil {
		t.Fatalf("non-strict: %v", err)
	}
	if v, _ := inst.Get("foo"); v != "raw" {
		t.Fatalf("expected pass-through, got %#v", v)
	}
}

func TestMaterializeWithMeta_PresenceFlags(t *testing.T) {
	rs := typedconv.Record("Cfg").
		Field("seen", "Optional[int]").
		Field("null", "Optional[int]").
		FieldDefault("defaulted", "int", int64(9))

	dec, err := typedconv.MaterializeWithMeta(context.Background(), rs,
		map[string]any{"seen": 1, "null": nil}, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("with meta: %v", err)
	}
	pm := dec.Presence
	if pm["/seen"]&typedconv.PresenceSeen == 0 {
		t.Fatalf("expected /seen marked seen: %v", pm)
	}
	if pm["/null"]&typedconv.PresenceWasNull == 0 {
		t.Fatalf("expected /null marked null: %v", pm)
	}
	if pm["/defaulted"]&typedconv.PresenceDefaultApplied == 0 {
		t.Fatalf("expected /defaulted marked defaulted: %v", pm)
	}
	if v, ok := dec.Value.Get("defaulted"); !ok || v != int64(9) {
		t.Fatalf("defaulted: got %v, %v", v, ok)
	}
}

func TestInstance_SetRespectsSchema(t *testing.T) {
	inst, err := typedconv.Materialize(context.Background(), cfgSchema(), map[string]any{"foo": 1}, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if err := inst.Set("foo", int64(5)); err != nil {
		t.Fatalf("set declared: %v", err)
	}
	if v, _ := inst.Get("foo"); v != int64(5) {
		t.Fatalf("expected 5, got %v", v)
	}
	if err := inst.Set("nope", 1); err == nil {
		t.Fatalf("expected undeclared Set to fail without extras capability")
	}
}
