package typedconv

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	yaml "gopkg.in/yaml.v3"

	"github.com/reoring/typedconv/i18n"
)

// FromJSON decodes JSON bytes into a raw value tree suitable for Convert and
// Materialize. Numbers decode as json.Number so the coercion table decides
// integer vs float fidelity instead of the decoder.
func FromJSON(b []byte) (any, error) {
	return FromJSONReader(bytes.NewReader(b))
}

// FromJSONReader is FromJSON over an io.Reader.
func FromJSONReader(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, Issues{Issue{
			Path:    "/",
			Code:    CodeParseError,
			Message: i18n.T(CodeParseError, nil),
			Hint:    "invalid JSON input",
			Cause:   err,
		}}
	}
	return v, nil
}

// FromYAML decodes YAML bytes into a raw value tree. Mapping keys are
// normalized to strings so records materialize from either format the same
// way.
func FromYAML(b []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(b, &v); err != nil {
		return nil, Issues{Issue{
			Path:    "/",
			Code:    CodeParseError,
			Message: i18n.T(CodeParseError, nil),
			Hint:    "invalid YAML input",
			Cause:   err,
		}}
	}
	return normalizeYAML(v), nil
}

// FromYAMLReader is FromYAML over an io.Reader.
func FromYAMLReader(r io.Reader) (any, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, Issues{Issue{
			Path:    "/",
			Code:    CodeParseError,
			Message: i18n.T(CodeParseError, nil),
			Hint:    "reading YAML input",
			Cause:   err,
		}}
	}
	return FromYAML(b)
}

// normalizeYAML rewrites decoded YAML containers into the canonical raw-tree
// shapes: map[string]any and []any.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}
