// Package objects provides generic helpers over nested raw value trees
// (maps, slices, scalars): flattening, unflattening, deep lookup, leaf
// modification, and structural comparison. The conversion engine uses them
// internally and they are usable standalone.
package objects

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Separators used by Flatten/Unflatten/DeepGet: "/" joins mapping keys,
// "#" joins sequence indices.
const (
	MapSeparator  = "/"
	ListSeparator = "#"
)

// Recursor decides which values the helpers descend into. Values it rejects
// are treated as leaves.
type Recursor interface {
	IsMapping(v any) bool
	IsIterable(v any) bool
}

// StrictRecursor recurses only into the standard raw-tree containers.
type StrictRecursor struct{}

func (StrictRecursor) IsMapping(v any) bool {
	switch v.(type) {
	case map[string]any, map[any]any:
		return true
	}
	return false
}

func (StrictRecursor) IsIterable(v any) bool {
	_, ok := v.([]any)
	return ok
}

// DefaultRecursor recurses into any map, slice, or array, except strings and
// byte slices.
type DefaultRecursor struct{}

func (DefaultRecursor) IsMapping(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Map
}

func (DefaultRecursor) IsIterable(v any) bool {
	switch v.(type) {
	case string, []byte:
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array)
}

// Flatten joins nested keys into flat paths:
//
//	{"a": 1, "b": {"c": 2}, "e": [1, 2]}  ->  {"a": 1, "b/c": 2, "e#0": 1, "e#1": 2}
//
// Keys containing either separator are rejected, otherwise Unflatten could
// not invert the result.
func Flatten(m map[string]any) (map[string]any, error) {
	return FlattenWith(m, StrictRecursor{})
}

// FlattenWith is Flatten with a custom recursion policy.
func FlattenWith(m map[string]any, r Recursor) (map[string]any, error) {
	out := make(map[string]any, len(m))
	keys := sortedKeys(m)
	for _, k := range keys {
		if err := checkKey(k); err != nil {
			return nil, err
		}
		if err := flattenInto(out, k, m[k], r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func flattenInto(out map[string]any, prefix string, v any, r Recursor) error {
	switch {
	case r.IsMapping(v):
		for _, e := range mapEntries(v) {
			if err := checkKey(e.key); err != nil {
				return err
			}
			if err := flattenInto(out, prefix+MapSeparator+e.key, e.value, r); err != nil {
				return err
			}
		}
	case r.IsIterable(v):
		for i, ev := range sliceElems(v) {
			if err := flattenInto(out, prefix+ListSeparator+strconv.Itoa(i), ev, r); err != nil {
				return err
			}
		}
	default:
		out[prefix] = v
	}
	return nil
}

func checkKey(k string) error {
	if strings.Contains(k, MapSeparator) || strings.Contains(k, ListSeparator) {
		return fmt.Errorf("objects: separators %q and %q not allowed in key %q when flattening", MapSeparator, ListSeparator, k)
	}
	return nil
}

// Unflatten inverts Flatten: flat paths become nested maps and slices.
// Conflicting paths (a leaf where a container is needed) are an error.
func Unflatten(flat map[string]any) (map[string]any, error) {
	root := map[string]any{}
	for _, k := range sortedKeys(flat) {
		toks, err := splitPath(k)
		if err != nil {
			return nil, err
		}
		if err := insertPath(root, toks, flat[k]); err != nil {
			return nil, fmt.Errorf("objects: conflicting path %q: %w", k, err)
		}
	}
	return root, nil
}

type segTok struct {
	list bool
	key  string
	idx  int
}

func splitPath(p string) ([]segTok, error) {
	if p == "" {
		return nil, fmt.Errorf("objects: empty path")
	}
	var toks []segTok
	start := 0
	list := false
	for i := 0; i <= len(p); i++ {
		if i < len(p) && p[i] != MapSeparator[0] && p[i] != ListSeparator[0] {
			continue
		}
		seg := p[start:i]
		if list {
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("objects: invalid index %q in path %q", seg, p)
			}
			toks = append(toks, segTok{list: true, idx: idx})
		} else {
			toks = append(toks, segTok{key: seg})
		}
		if i < len(p) {
			list = p[i] == ListSeparator[0]
			start = i + 1
		}
	}
	return toks, nil
}

func insertPath(root map[string]any, toks []segTok, v any) error {
	if toks[0].list {
		return fmt.Errorf("path must start with a mapping key")
	}
	_, err := insertTok(root, toks, v)
	return err
}

// insertTok writes v at the token path inside cur, growing containers as
// needed, and returns the possibly replaced container.
func insertTok(cur any, toks []segTok, v any) (any, error) {
	t := toks[0]
	if t.list {
		sl, ok := cur.([]any)
		if cur == nil {
			sl, ok = []any{}, true
		}
		if !ok {
			return nil, fmt.Errorf("expected a sequence")
		}
		for len(sl) <= t.idx {
			sl = append(sl, nil)
		}
		if len(toks) == 1 {
			if sl[t.idx] != nil {
				return nil, fmt.Errorf("leaf already set")
			}
			sl[t.idx] = v
			return sl, nil
		}
		child, err := insertTok(sl[t.idx], toks[1:], v)
		if err != nil {
			return nil, err
		}
		sl[t.idx] = child
		return sl, nil
	}
	m, ok := cur.(map[string]any)
	if cur == nil {
		m, ok = map[string]any{}, true
	}
	if !ok {
		return nil, fmt.Errorf("expected a mapping")
	}
	if len(toks) == 1 {
		if _, exists := m[t.key]; exists {
			return nil, fmt.Errorf("leaf already set")
		}
		m[t.key] = v
		return m, nil
	}
	child, err := insertTok(m[t.key], toks[1:], v)
	if err != nil {
		return nil, err
	}
	m[t.key] = child
	return m, nil
}

// DeepGet looks up a flattened path ("a/b#0/c") in a nested value.
func DeepGet(v any, path string) (any, bool) {
	toks, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	cur := v
	for _, t := range toks {
		if t.list {
			sl, ok := cur.([]any)
			if !ok || t.idx >= len(sl) {
				return nil, false
			}
			cur = sl[t.idx]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[t.key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ModifyLeaves returns a copy of the tree with fn applied to every leaf.
func ModifyLeaves(v any, fn func(any) any) any {
	return modifyLeaves(v, fn, StrictRecursor{})
}

func modifyLeaves(v any, fn func(any) any, r Recursor) any {
	switch {
	case r.IsMapping(v):
		out := make(map[string]any)
		for _, e := range mapEntries(v) {
			out[e.key] = modifyLeaves(e.value, fn, r)
		}
		return out
	case r.IsIterable(v):
		elems := sliceElems(v)
		out := make([]any, len(elems))
		for i, ev := range elems {
			out[i] = modifyLeaves(ev, fn, r)
		}
		return out
	default:
		return fn(v)
	}
}

// Compare walks two nested values and returns a description of every
// difference, one string per differing path. An empty result means the
// values are structurally equal.
func Compare(a, b any) []string {
	return compare(a, b, "", StrictRecursor{})
}

func compare(a, b any, prefix string, r Recursor) []string {
	if (a == nil) != (b == nil) {
		return []string{fmt.Sprintf("%s value mismatch: %v != %v", prefix, a, b)}
	}
	if a == nil {
		return nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return []string{fmt.Sprintf("%s type mismatch: %T != %T", prefix, a, b)}
	}
	switch {
	case r.IsMapping(a):
		var diffs []string
		ae, be := mapEntries(a), mapEntries(b)
		bk := make(map[string]any, len(be))
		for _, e := range be {
			bk[e.key] = e.value
		}
		seen := make(map[string]struct{}, len(ae))
		for _, e := range ae {
			seen[e.key] = struct{}{}
			bv, ok := bk[e.key]
			if !ok {
				diffs = append(diffs, fmt.Sprintf("%s key %q missing in second value", prefix, e.key))
				continue
			}
			diffs = append(diffs, compare(e.value, bv, prefix+"."+e.key, r)...)
		}
		for _, e := range be {
			if _, ok := seen[e.key]; !ok {
				diffs = append(diffs, fmt.Sprintf("%s key %q missing in first value", prefix, e.key))
			}
		}
		return diffs
	case r.IsIterable(a):
		ae, be := sliceElems(a), sliceElems(b)
		if len(ae) != len(be) {
			return []string{fmt.Sprintf("%s length mismatch: %d != %d", prefix, len(ae), len(be))}
		}
		var diffs []string
		for i := range ae {
			diffs = append(diffs, compare(ae[i], be[i], prefix+"["+strconv.Itoa(i)+"]", r)...)
		}
		return diffs
	default:
		if !reflect.DeepEqual(a, b) {
			return []string{fmt.Sprintf("%s %v != %v", prefix, a, b)}
		}
		return nil
	}
}

// Equal reports whether two nested values are structurally equal.
func Equal(a, b any) bool { return len(Compare(a, b)) == 0 }

// ---- shared iteration helpers ----

type entry struct {
	key   string
	value any
}

func mapEntries(v any) []entry {
	var out []entry
	switch t := v.(type) {
	case map[string]any:
		out = make([]entry, 0, len(t))
		for k, val := range t {
			out = append(out, entry{key: k, value: val})
		}
	case map[any]any:
		out = make([]entry, 0, len(t))
		for k, val := range t {
			out = append(out, entry{key: fmt.Sprint(k), value: val})
		}
	default:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || rv.Kind() != reflect.Map {
			return nil
		}
		out = make([]entry, 0, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			out = append(out, entry{key: fmt.Sprint(it.Key().Interface()), value: it.Value().Interface()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func sliceElems(v any) []any {
	if sl, ok := v.([]any); ok {
		return sl
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
