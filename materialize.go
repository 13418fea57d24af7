package typedconv

import (
	"context"
	"sort"
	"strings"

	"github.com/reoring/typedconv/i18n"
)

// Materialize builds a typed record instance from a raw mapping, an existing
// instance (field-by-field re-validation), or a struct value. It either
// returns a fully converted instance or an error aggregating every failing
// field path; callers never receive a partial instance.
func Materialize(ctx context.Context, rs *RecordSchema, v any, opt Options) (*Instance, error) {
	c := newConverter(opt)
	inst, err := materializeRoot(ctx, c, rs, v)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// MaterializeWithMeta is Materialize collecting presence metadata: which
// field paths were seen in the input, were null, or had a default applied.
func MaterializeWithMeta(ctx context.Context, rs *RecordSchema, v any, opt Options) (Decoded[*Instance], error) {
	c := newConverter(opt)
	c.pm = PresenceMap{"/": PresenceSeen}
	inst, err := materializeRoot(ctx, c, rs, v)
	if err != nil {
		return Decoded[*Instance]{Presence: c.pm}, err
	}
	return Decoded[*Instance]{Value: inst, Presence: c.pm}, nil
}

func materializeRoot(ctx context.Context, c *converter, rs *RecordSchema, v any) (*Instance, error) {
	if v == nil && !c.opt.Strict {
		return nil, nil
	}
	src, ok := asRecordInput(v)
	if !ok {
		// the typed entry point rejects unusable roots even in non-strict
		// mode; pass-through downgrades apply to nested fields only
		return nil, Issues{Issue{
			Path:     "/",
			Code:     CodeTypeMismatch,
			Message:  i18n.T(CodeTypeMismatch, nil),
			Expected: rs.Name,
			Actual:   shortValue(v),
			Hint:     "expected a mapping, record instance, or struct",
		}}
	}
	inst, iss := c.materialize(ctx, rs, src, "", 0)
	if len(iss) > 0 {
		return nil, iss
	}
	return inst, nil
}

// materialize runs the declared-field walk over an already decomposed
// mapping, then applies the unknown-key policy to the leftovers.
func (c *converter) materialize(ctx context.Context, rs *RecordSchema, src map[string]any, path string, depth int) (*Instance, Issues) {
	if depth > c.maxDepth {
		return nil, Issues{Issue{
			Path:    issuePath(path),
			Code:    CodeTruncated,
			Message: i18n.T(CodeTruncated, nil),
			Hint:    "max recursion depth exceeded",
		}}
	}
	inst := newInstance(rs)
	var iss Issues
	for _, f := range rs.Fields {
		fpath := path + "/" + f.Name
		desc, rerr := rs.resolveFieldType(f)
		if rerr != nil {
			if !c.opt.Strict {
				// unsupported_type downgrades to pass-through of the raw value
				if val, ok := src[f.Name]; ok {
					inst.set(f.Name, val)
				} else if f.HasDefault {
					inst.set(f.Name, f.Default)
				}
				continue
			}
			iss = AppendIssues(iss, rebase(fpath, issuesFromErr("/", rerr))...)
			if c.opt.FailFast {
				return nil, iss
			}
			continue
		}
		if val, ok := src[f.Name]; ok {
			c.markPresence(fpath, PresenceSeen)
			if val == nil {
				c.markPresence(fpath, PresenceWasNull)
			}
			out, i2 := c.convert(ctx, desc, val, fpath, depth+1)
			if len(i2) > 0 {
				iss = AppendIssues(iss, i2...)
				if c.opt.FailFast {
					return nil, iss
				}
				continue
			}
			inst.set(f.Name, out)
			continue
		}
		if f.HasDefault {
			// defaults are applied verbatim, without conversion
			inst.set(f.Name, f.Default)
			c.markPresence(fpath, PresenceDefaultApplied)
			continue
		}
		if c.opt.Strict {
			iss = AppendIssues(iss, Issue{
				Path:     fpath,
				Code:     CodeMissingField,
				Message:  i18n.T(CodeMissingField, nil),
				Expected: desc.String(),
			})
			if c.opt.FailFast {
				return nil, iss
			}
		}
		// non-strict: the field stays unset
	}

	iss = AppendIssues(iss, c.collectUnknown(rs, src, inst, path)...)
	if len(iss) > 0 {
		return nil, iss
	}
	return inst, nil
}

// collectUnknown applies the unknown-key policy to leftover input keys, in
// sorted order for deterministic reporting.
func (c *converter) collectUnknown(rs *RecordSchema, src map[string]any, inst *Instance, path string) Issues {
	var unknown []string
	for k := range src {
		if !rs.declared(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)

	var iss Issues
	for _, k := range unknown {
		switch {
		case c.opt.SkipUnknowns:
			// drop
		case rs.AllowExtraKeys || !c.opt.Strict:
			if rs.DynamicExtras {
				inst.setExtra(k, src[k])
				c.markPresence(path+"/"+k, PresenceSeen)
			}
			// without the extras capability, admitted unknowns are dropped
		default:
			iss = AppendIssues(iss, Issue{
				Path:    path + "/" + k,
				Code:    CodeUnknownField,
				Message: i18n.T(CodeUnknownField, nil),
				Actual:  shortValue(src[k]),
				Hint:    "declared fields: " + strings.Join(declaredNames(rs), ", "),
			})
			if c.opt.FailFast {
				return iss
			}
		}
	}
	return iss
}

func declaredNames(rs *RecordSchema) []string {
	names := make([]string, len(rs.Fields))
	for i, f := range rs.Fields {
		names[i] = f.Name
	}
	return names
}

// asRecordInput decomposes any acceptable record input into a plain mapping:
// existing instances re-validate field by field, structs decompose through
// their resolved field keys, and string-keyed maps pass through.
func asRecordInput(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case nil, string:
		return nil, false
	case *Instance:
		return t.AsMap(), true
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return structAsMap(v)
}
