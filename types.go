package typedconv

// Path is the canonical filesystem-path primitive. Strings coerce to Path and
// Path coerces back to string via the default conversion table.
type Path string

// DefaultMaxDepth bounds converter recursion when Options.MaxDepth is zero.
const DefaultMaxDepth = 1000

// Options is the per-call conversion context. The zero value is NOT the
// default configuration; use DefaultOptions (strict, full accumulation).
type Options struct {
	// Strict requires exact structural match and full type coercion. When
	// false, type_mismatch and unsupported_type occurrences downgrade to
	// silent pass-through; length_mismatch and duplicate_key still fail.
	Strict bool
	// SkipUnknowns drops input keys that are not declared on the record.
	SkipUnknowns bool
	// Conversions overrides the coercion table. Nil means DefaultConversions;
	// an empty non-nil slice disables all coercion.
	Conversions []Conversion
	// Leaf marks descriptors the converter must treat as opaque values even
	// when they are structurally containers. Nil means no leaves.
	Leaf func(*Descriptor) bool
	// MaxDepth bounds recursion; zero means DefaultMaxDepth.
	MaxDepth int
	// FailFast stops at the first issue instead of accumulating all of them.
	FailFast bool
}

// DefaultOptions returns the strict defaults: full coercion table, full error
// accumulation, unknown keys rejected.
func DefaultOptions() Options {
	return Options{Strict: true}
}

// NonStrict returns options with strictness disabled.
func NonStrict() Options {
	return Options{Strict: false}
}

// LeafKinds builds a Leaf predicate matching any of the given kinds.
func LeafKinds(kinds ...Kind) func(*Descriptor) bool {
	return func(d *Descriptor) bool {
		for _, k := range kinds {
			if d.Kind == k {
				return true
			}
		}
		return false
	}
}
