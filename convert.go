package typedconv

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/reoring/typedconv/i18n"
)

// Convert walks the descriptor and the raw value tree in lock-step and
// returns the fully converted value, or an error aggregating every failing
// sub-path found in one pass. On failure the returned value is always nil;
// callers never see a half-built result.
func Convert(ctx context.Context, d *Descriptor, v any, opt Options) (any, error) {
	c := newConverter(opt)
	out, iss := c.convert(ctx, d, v, "", 0)
	if len(iss) > 0 {
		return nil, iss
	}
	return out, nil
}

type converter struct {
	opt      Options
	convs    []Conversion
	maxDepth int
	pm       PresenceMap // nil unless the caller asked for metadata
}

func newConverter(opt Options) *converter {
	convs := opt.Conversions
	if convs == nil {
		convs = DefaultConversions()
	}
	maxDepth := opt.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &converter{opt: opt, convs: convs, maxDepth: maxDepth}
}

func (c *converter) markPresence(path string, p Presence) {
	if c.pm != nil {
		c.pm[path] |= p
	}
}

// issuePath renders the root path as "/" so issues always carry a pointer.
func issuePath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

func (c *converter) convert(ctx context.Context, d *Descriptor, v any, path string, depth int) (any, Issues) {
	// deref raw pointers (optional struct fields) so nil pointers match None
	// and pointees convert like plain values; *Instance stays intact
	if v != nil {
		if _, isInst := v.(*Instance); !isInst {
			if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
				if rv.IsNil() {
					v = nil
				} else {
					v = rv.Elem().Interface()
				}
			}
		}
	}
	if depth > c.maxDepth {
		return nil, Issues{Issue{
			Path:    issuePath(path),
			Code:    CodeTruncated,
			Message: i18n.T(CodeTruncated, nil),
			Hint:    "max recursion depth exceeded",
		}}
	}
	switch d.Kind {
	case KindAny:
		return v, nil
	case KindNone:
		if v == nil {
			return nil, nil
		}
		return c.mismatch(d, v, path)
	case KindPrimitive:
		return c.convertPrimitive(d, v, path)
	case KindRecord:
		return c.convertRecord(ctx, d, v, path, depth)
	case KindList, KindSet, KindTuple:
		return c.convertSequence(ctx, d, v, path, depth)
	case KindDict:
		return c.convertDict(ctx, d, v, path, depth)
	case KindUnion:
		return c.convertUnion(ctx, d, v, path, depth)
	default:
		return nil, Issues{Issue{
			Path:    issuePath(path),
			Code:    CodeUnsupportedType,
			Message: i18n.T(CodeUnsupportedType, nil),
			Actual:  d.Kind.String(),
		}}
	}
}

// mismatch produces the strictness-dependent outcome for a value that cannot
// be coerced: an issue in strict mode, the value as-is otherwise.
func (c *converter) mismatch(d *Descriptor, v any, path string) (any, Issues) {
	if !c.opt.Strict {
		return v, nil
	}
	return nil, Issues{Issue{
		Path:     issuePath(path),
		Code:     CodeTypeMismatch,
		Message:  i18n.T(CodeTypeMismatch, nil),
		Expected: d.String(),
		Actual:   shortValue(v),
	}}
}

func (c *converter) convertPrimitive(d *Descriptor, v any, path string) (any, Issues) {
	prim, canon, ok := classifyPrimitive(v)
	if !ok {
		return c.mismatch(d, v, path)
	}
	if prim == d.Prim {
		return canon, nil
	}
	if fn, found := lookupConversion(c.convs, prim, d.Prim); found {
		out, err := fn(canon)
		if err != nil {
			return nil, Issues{Issue{
				Path:     issuePath(path),
				Code:     CodeTypeMismatch,
				Message:  i18n.T(CodeTypeMismatch, nil),
				Expected: d.String(),
				Actual:   shortValue(v),
				Cause:    err,
			}}
		}
		return out, nil
	}
	return c.mismatch(d, v, path)
}

func (c *converter) convertRecord(ctx context.Context, d *Descriptor, v any, path string, depth int) (any, Issues) {
	src, ok := asRecordInput(v)
	if !ok {
		if v == nil && !c.opt.Strict {
			return nil, nil
		}
		return c.mismatch(d, v, path)
	}
	inst, iss := c.materialize(ctx, d.Record, src, path, depth+1)
	if len(iss) > 0 {
		return nil, iss
	}
	return inst, nil
}

func (c *converter) convertSequence(ctx context.Context, d *Descriptor, v any, path string, depth int) (any, Issues) {
	if c.opt.Leaf != nil && c.opt.Leaf(d) {
		return v, nil
	}
	elems, ok := elementsOf(v)
	if !ok {
		return c.mismatch(d, v, path)
	}
	if d.Kind == KindTuple && !d.Variadic && len(elems) != len(d.Elems) {
		// structural failure, not downgraded by non-strict mode
		return nil, Issues{Issue{
			Path:     issuePath(path),
			Code:     CodeLengthMismatch,
			Message:  i18n.T(CodeLengthMismatch, nil),
			Expected: d.String(),
			Actual:   fmt.Sprintf("sequence of length %d", len(elems)),
		}}
	}
	out := make([]any, 0, len(elems))
	var iss Issues
	for i, ev := range elems {
		ed := d.Elems[0]
		if d.Kind == KindTuple && !d.Variadic {
			ed = d.Elems[i]
		}
		cv, i2 := c.convert(ctx, ed, ev, path+"/"+strconv.Itoa(i), depth+1)
		if len(i2) > 0 {
			iss = AppendIssues(iss, i2...)
			if c.opt.FailFast {
				return nil, iss
			}
			continue
		}
		out = append(out, cv)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	if d.Kind == KindSet {
		return c.buildSet(out, d, path)
	}
	return out, nil
}

func (c *converter) buildSet(elems []any, d *Descriptor, path string) (any, Issues) {
	set := make(map[any]struct{}, len(elems))
	for _, ev := range elems {
		if ev != nil && !reflect.TypeOf(ev).Comparable() {
			return nil, Issues{Issue{
				Path:     issuePath(path),
				Code:     CodeTypeMismatch,
				Message:  i18n.T(CodeTypeMismatch, nil),
				Expected: d.String(),
				Actual:   shortValue(ev),
				Hint:     "set elements must be comparable",
			}}
		}
		set[ev] = struct{}{}
	}
	return set, nil
}

func (c *converter) convertDict(ctx context.Context, d *Descriptor, v any, path string, depth int) (any, Issues) {
	if c.opt.Leaf != nil && c.opt.Leaf(d) {
		return v, nil
	}
	entries, ok := entriesOf(v)
	if !ok {
		return c.mismatch(d, v, path)
	}
	kd, vd := d.Elems[0], d.Elems[1]
	out := make(map[any]any, len(entries))
	var iss Issues
	for _, e := range entries {
		epath := path + "/" + keySegment(e.key)
		ck, ki := c.convert(ctx, kd, e.key, epath, depth+1)
		if len(ki) > 0 {
			for i := range ki {
				if ki[i].Hint == "" {
					ki[i].Hint = "dict key"
				}
			}
			iss = AppendIssues(iss, ki...)
			if c.opt.FailFast {
				return nil, iss
			}
			continue
		}
		cv, vi := c.convert(ctx, vd, e.value, epath, depth+1)
		if len(vi) > 0 {
			iss = AppendIssues(iss, vi...)
			if c.opt.FailFast {
				return nil, iss
			}
			continue
		}
		if ck != nil && !reflect.TypeOf(ck).Comparable() {
			iss = AppendIssues(iss, Issue{
				Path:     epath,
				Code:     CodeTypeMismatch,
				Message:  i18n.T(CodeTypeMismatch, nil),
				Expected: kd.String(),
				Actual:   shortValue(ck),
				Hint:     "dict keys must be comparable",
			})
			if c.opt.FailFast {
				return nil, iss
			}
			continue
		}
		if _, exists := out[ck]; exists {
			// structural failure, not downgraded by non-strict mode
			iss = AppendIssues(iss, Issue{
				Path:    epath,
				Code:    CodeDuplicateKey,
				Message: i18n.T(CodeDuplicateKey, nil),
				Actual:  shortValue(ck),
				Hint:    "keys collide after conversion",
			})
			if c.opt.FailFast {
				return nil, iss
			}
			continue
		}
		out[ck] = cv
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return out, nil
}

// convertUnion tries each alternative in declaration order with strictness
// forced on so that a non-strict pass-through cannot shadow a later exact
// match. The first alternative that converts wins.
func (c *converter) convertUnion(ctx context.Context, d *Descriptor, v any, path string, depth int) (any, Issues) {
	var attempts []string
	for _, alt := range d.Elems {
		sub := *c
		sub.opt.Strict = true
		sub.opt.FailFast = false
		sub.pm = nil
		out, iss := sub.convert(ctx, alt, v, path, depth+1)
		if len(iss) == 0 {
			return out, nil
		}
		attempts = append(attempts, alt.String()+": "+iss.Error())
	}
	if !c.opt.Strict {
		return v, nil
	}
	return nil, Issues{Issue{
		Path:     issuePath(path),
		Code:     CodeTypeMismatch,
		Message:  i18n.T(CodeTypeMismatch, nil),
		Expected: d.String(),
		Actual:   shortValue(v),
		Hint:     "no union alternative matched: " + strings.Join(attempts, "; "),
	}}
}

// ---- raw-tree shape helpers ----

// elementsOf extracts ordered elements from any recognized container input.
// Strings and byte slices never count as containers.
func elementsOf(v any) ([]any, bool) {
	switch t := v.(type) {
	case nil, string, []byte, Path:
		return nil, false
	case []any:
		return t, true
	case map[any]struct{}:
		out := make([]any, 0, len(t))
		for k := range t {
			out = append(out, k)
		}
		sort.Slice(out, func(i, j int) bool { return keySegment(out[i]) < keySegment(out[j]) })
		return out, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out, true
	default:
		return nil, false
	}
}

type mapEntry struct {
	key   any
	value any
}

// entriesOf extracts mapping entries in deterministic key order.
func entriesOf(v any) ([]mapEntry, bool) {
	if _, isSet := v.(map[any]struct{}); isSet {
		return nil, false
	}
	var out []mapEntry
	switch t := v.(type) {
	case map[string]any:
		out = make([]mapEntry, 0, len(t))
		for k, val := range t {
			out = append(out, mapEntry{key: k, value: val})
		}
	case map[any]any:
		out = make([]mapEntry, 0, len(t))
		for k, val := range t {
			out = append(out, mapEntry{key: k, value: val})
		}
	default:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || rv.Kind() != reflect.Map {
			return nil, false
		}
		out = make([]mapEntry, 0, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			out = append(out, mapEntry{key: it.Key().Interface(), value: it.Value().Interface()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return keySegment(out[i].key) < keySegment(out[j].key) })
	return out, true
}

func keySegment(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

// shortValue renders a value short enough for error messages.
func shortValue(v any) string {
	if v == nil {
		return "nil"
	}
	s := fmt.Sprintf("%T(%v)", v, v)
	const maxLen = 60
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
