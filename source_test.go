package typedconv_test

import (
	"context"
	"strings"
	"testing"

	typedconv "github.com/reoring/typedconv"
)

func TestFromJSON_MaterializesWithNumericFidelity(t *testing.T) {
	rs := typedconv.Record("Cfg").
		Field("count", "int").
		Field("ratio", "float")

	raw, err := typedconv.FromJSON([]byte(`{"count": 3, "ratio": 3}`))
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	inst, err := typedconv.Materialize(context.Background(), rs, raw, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if v, _ := inst.Get("count"); v != int64(3) {
		t.Fatalf("count: expected int64(3), got %#v", v)
	}
	if v, _ := inst.Get("ratio"); v != float64(3) {
		t.Fatalf("ratio: expected float64(3) via coercion, got %#v", v)
	}
}

func TestFromJSON_FractionsStayFloats(t *testing.T) {
	rs := typedconv.Record("Cfg").Field("count", "int")

	raw, err := typedconv.FromJSON([]byte(`{"count": 3.5}`))
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	_, err = typedconv.Materialize(context.Background(), rs, raw, typedconv.DefaultOptions())
	wantIssue(t, err, typedconv.CodeTypeMismatch, "/count")
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := typedconv.FromJSON([]byte(`{"broken`))
	iss, ok := typedconv.AsIssues(err)
	if !ok || iss[0].Code != typedconv.CodeParseError {
		t.Fatalf("expected parse_error, got %v", err)
	}
	if iss[0].Cause == nil {
		t.Fatalf("expected the decoder error as Cause")
	}
}

func TestFromYAML_MaterializesLists(t *testing.T) {
	rs := typedconv.Record("Cfg").
		Field("name", "str").
		Field("dirs", "list[Path]")

	raw, err := typedconv.FromYAML([]byte("name: run1\ndirs:\n  - /in\n  - /out\n"))
	if err != nil {
		t.Fatalf("from yaml: %v", err)
	}
	inst, err := typedconv.Materialize(context.Background(), rs, raw, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	v, _ := inst.Get("dirs")
	dirs, ok := v.([]any)
	if !ok || len(dirs) != 2 {
		t.Fatalf("dirs: got %#v", v)
	}
	if dirs[0] != typedconv.Path("/in") || dirs[1] != typedconv.Path("/out") {
		t.Fatalf("expected Path elements, got %#v", dirs)
	}
}

func TestFromYAML_Invalid(t *testing.T) {
	_, err := typedconv.FromYAML([]byte(":\n\t- broken"))
	iss, ok := typedconv.AsIssues(err)
	if !ok || iss[0].Code != typedconv.CodeParseError {
		t.Fatalf("expected parse_error, got %v", err)
	}
}

func TestFromJSONReader(t *testing.T) {
	raw, err := typedconv.FromJSONReader(strings.NewReader(`[1, 2]`))
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	out, err := typedconv.Convert(context.Background(), typedconv.ListOf(typedconv.Int()), raw, typedconv.DefaultOptions())
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	elems, ok := out.([]any)
	if !ok || len(elems) != 2 || elems[0] != int64(1) {
		t.Fatalf("unexpected result %#v", out)
	}
}
