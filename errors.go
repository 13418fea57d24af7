package typedconv

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeTypeMismatch    = "type_mismatch"    // Value kind cannot be coerced to the expected kind.
	CodeMissingField    = "missing_field"    // Required field absent with no default.
	CodeUnknownField    = "unknown_field"    // Unexpected key in strict mode, not skipped.
	CodeLengthMismatch  = "length_mismatch"  // Fixed-arity container length differs.
	CodeDuplicateKey    = "duplicate_key"    // Dict conversion produced colliding keys.
	CodeUnsupportedType = "unsupported_type" // Schema references a type the resolver cannot normalize.
	CodeParseError      = "parse_error"      // Malformed type expression or undecodable input.
	CodeTruncated       = "truncated"        // Recursion depth limit exceeded.
)

// Issue represents a single conversion failure at one path.
type Issue struct {
	Path     string // JSON Pointer (for example: /sub/items/2).
	Code     string // One of the codes listed above.
	Message  string
	Hint     string // Optional: remediation hints, attempted union alternatives, etc.
	Expected string // Expected type rendered in canonical form, when known.
	Actual   string // Offending value rendered short, when known.
	Cause    error  // Optional: underlying error.
}

// Issues is the aggregate error for one Convert/Materialize call. Entries are
// kept in discovery order (depth-first, field/element declaration order).
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. type_mismatch at /path
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		if it.Expected != "" {
			fmt.Fprintf(b, " (expected %s", it.Expected)
			if it.Actual != "" {
				fmt.Fprintf(b, ", got %s", it.Actual)
			}
			b.WriteString(")")
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// rebase prefixes child issue paths with the given segment so that nested
// failures surface with their full path from the root.
func rebase(base string, child Issues) Issues {
	var out Issues
	for _, it := range child {
		p := it.Path
		if p == "" || p == "/" {
			p = base
		} else if p[0] == '/' {
			p = base + p
		} else {
			p = base + "/" + p
		}
		it.Path = p
		out = AppendIssues(out, it)
	}
	return out
}

// issuesFromErr converts an error into Issues, wrapping non-Issues with CodeParseError.
func issuesFromErr(path string, err error) Issues {
	if err == nil {
		return nil
	}
	if i2, ok := AsIssues(err); ok {
		return i2
	}
	return Issues{Issue{Path: path, Code: CodeParseError, Message: err.Error(), Cause: err}}
}
