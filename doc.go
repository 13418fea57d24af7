// Package typedconv converts untyped value trees (as produced by JSON/YAML
// decoding) into typed, validated values driven by a declarative schema.
//
// It provides:
//
//   - A type-expression resolver that normalizes legacy and modern container
//     spellings (List[int] / list[int], Optional[T] / T | None) into one
//     canonical Descriptor
//   - A recursive, type-directed value converter with a pluggable coercion
//     table
//   - Record schemas with defaults, unknown-key policies, and reflect-based
//     struct binding (MaterializeAs)
//   - A stable error model via Issues (JSON Pointer path, code, message) that
//     aggregates every failing sub-path from one call instead of stopping at
//     the first
//
// Design policy:
//   - Keep only public APIs in the root package; nested-structure helpers
//     live under objects/ and messages under i18n/.
//   - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	scope := typedconv.NewScope()
//	cfg := scope.Register(typedconv.Record("Cfg").
//		Field("foo", "int").
//		FieldDefault("bar", "Optional[int]", nil))
//
//	raw, err := typedconv.FromJSON(data)
//	if err != nil { ... }
//	inst, err := typedconv.Materialize(ctx, cfg, raw, typedconv.DefaultOptions())
package typedconv
