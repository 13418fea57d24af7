package typedconv_test

import (
	"context"
	"reflect"
	"testing"

	typedconv "github.com/reoring/typedconv"
)

type bindCfg struct {
	Foo int  `json:"foo"`
	Bar *int `json:"bar"`
}

func TestMaterializeAs_Basic(t *testing.T) {
	rs := typedconv.Record("Cfg").
		Field("foo", "int").
		FieldDefault("bar", "Optional[int]", nil)

	got, err := typedconv.MaterializeAs[bindCfg](context.Background(), rs,
		map[string]any{"foo": 1, "bar": 2}, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("materialize as: %v", err)
	}
	if got.Foo != 1 {
		t.Fatalf("Foo: got %d", got.Foo)
	}
	if got.Bar == nil || *got.Bar != 2 {
		t.Fatalf("Bar: got %v", got.Bar)
	}

	got, err = typedconv.MaterializeAs[bindCfg](context.Background(), rs,
		map[string]any{"foo": 3}, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("materialize as: %v", err)
	}
	if got.Bar != nil {
		t.Fatalf("expected nil Bar from the nil default, got %v", got.Bar)
	}
}

func TestMaterializeAs_StructInput(t *testing.T) {
	rs := typedconv.Record("Cfg").
		Field("foo", "int").
		FieldDefault("bar", "Optional[int]", nil)

	two := 2
	got, err := typedconv.MaterializeAs[bindCfg](context.Background(), rs,
		bindCfg{Foo: 1, Bar: &two}, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("struct round trip: %v", err)
	}
	if got.Foo != 1 || got.Bar == nil || *got.Bar != 2 {
		t.Fatalf("unexpected result %+v", got)
	}
}

type bindOuter struct {
	Sub   bindSub  `json:"sub"`
	Names []string `json:"names"`
}

type bindSub struct {
	Foo int `json:"foo"`
}

func TestBind_NestedAndSlices(t *testing.T) {
	scope := typedconv.NewScope()
	scope.Register(typedconv.Record("Sub").Field("foo", "int"))
	outer := scope.Register(typedconv.Record("Outer").
		Field("sub", "Sub").
		Field("names", "list[str]"))

	got, err := typedconv.MaterializeAs[bindOuter](context.Background(), outer, map[string]any{
		"sub":   map[string]any{"foo": 7},
		"names": []any{"a", "b"},
	}, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if got.Sub.Foo != 7 {
		t.Fatalf("Sub.Foo: got %d", got.Sub.Foo)
	}
	if !reflect.DeepEqual(got.Names, []string{"a", "b"}) {
		t.Fatalf("Names: got %v", got.Names)
	}
}

type bindWithExtras struct {
	Foo    int            `json:"foo"`
	Extras map[string]any `conv:",extras"`
}

func TestBind_ExtrasField(t *testing.T) {
	rs := typedconv.Record("Cfg").Field("foo", "int").AllowExtra().WithExtras()

	got, err := typedconv.MaterializeAs[bindWithExtras](context.Background(), rs,
		map[string]any{"foo": 1, "ghost": true}, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("extras bind: %v", err)
	}
	if !reflect.DeepEqual(got.Extras, map[string]any{"ghost": true}) {
		t.Fatalf("Extras: got %v", got.Extras)
	}
}

func TestBind_RefusesNumericToString(t *testing.T) {
	type oddCfg struct {
		Foo string `json:"foo"`
	}
	rs := typedconv.Record("Cfg").Field("foo", "int")

	_, err := typedconv.MaterializeAs[oddCfg](context.Background(), rs,
		map[string]any{"foo": 65}, typedconv.DefaultOptions())
	wantIssue(t, err, typedconv.CodeTypeMismatch, "/foo")
}

type derivedCfg struct {
	Alpha string            `conv:"name=alpha"`
	Count int               `json:"count"`
	Tags  []string          `json:"tags"`
	Dirs  map[string]string `json:"dirs"`
	Ratio *float64          `json:"ratio"`

	hidden bool // unexported, never part of the schema
}

func TestStructSchema_Derivation(t *testing.T) {
	rs := typedconv.MustStructSchema[derivedCfg](nil)

	wantTypes := map[string]string{
		"alpha": "str",
		"count": "int",
		"tags":  "list[str]",
		"dirs":  "dict[str, str]",
		"ratio": "float | None",
	}
	if len(rs.Fields) != len(wantTypes) {
		t.Fatalf("expected %d fields, got %+v", len(wantTypes), rs.Fields)
	}
	for _, f := range rs.Fields {
		d, err := typedconv.Resolve(f.Type)
		if err != nil {
			t.Fatalf("resolve field %s: %v", f.Name, err)
		}
		if d.String() != wantTypes[f.Name] {
			t.Fatalf("field %s: expected %q, got %q", f.Name, wantTypes[f.Name], d)
		}
	}

	got, err := typedconv.MaterializeAs[derivedCfg](context.Background(), rs, map[string]any{
		"alpha": "x",
		"count": 2,
		"tags":  []any{"a"},
		"dirs":  map[string]any{"in": "/in"},
	}, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("derived materialize: %v", err)
	}
	want := derivedCfg{
		Alpha: "x",
		Count: 2,
		Tags:  []string{"a"},
		Dirs:  map[string]string{"in": "/in"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

type selfRef struct {
	Name string   `json:"name"`
	Next *selfRef `json:"next"`
}

func TestStructSchema_SelfReferenceTerminates(t *testing.T) {
	rs := typedconv.MustStructSchema[selfRef](typedconv.NewScope())

	got, err := typedconv.MaterializeAs[selfRef](context.Background(), rs, map[string]any{
		"name": "a",
		"next": map[string]any{"name": "b"},
	}, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("self reference: %v", err)
	}
	if got.Next == nil || got.Next.Name != "b" {
		t.Fatalf("unexpected chain %+v", got)
	}
	if got.Next.Next != nil {
		t.Fatalf("expected chain end, got %+v", got.Next.Next)
	}
}
