package typedconv

import (
	"fmt"
	"strings"

	"github.com/reoring/typedconv/i18n"
)

// Scope is the lookup table resolving record names referenced by type
// expressions. It is built once by whoever defines the schemas and passed
// explicitly; there is no global registry.
type Scope map[string]*RecordSchema

// NewScope returns an empty scope.
func NewScope() Scope { return Scope{} }

// Register adds the record schema under its name and wires the scope back
// into the schema so field type expressions resolve against it.
func (s Scope) Register(rs *RecordSchema) *RecordSchema {
	rs.scope = s
	s[rs.Name] = rs
	return rs
}

// Resolve normalizes a schema type expression into a canonical Descriptor.
//
// Accepted inputs:
//   - *Descriptor: returned unchanged (idempotence)
//   - *RecordSchema: wrapped as a record descriptor
//   - string: parsed by the type-expression grammar; legacy generic aliases
//     (List[int], Optional[T], Union[A,B]) and modern built-in forms
//     (list[int], A | B | None) normalize to the same descriptor
//
// Unresolvable forward references and abstract container types fail with an
// unsupported_type issue; malformed expressions fail with parse_error.
func (s Scope) Resolve(expr any) (*Descriptor, error) {
	switch t := expr.(type) {
	case *Descriptor:
		return t, nil
	case *RecordSchema:
		return RecordOf(t), nil
	case string:
		p := &exprParser{scope: s, src: t}
		d, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		if tok, _ := p.peek(); tok != tokEOF {
			return nil, p.syntaxError("unexpected trailing input")
		}
		return d, nil
	default:
		return nil, Issues{Issue{
			Path:    "/",
			Code:    CodeUnsupportedType,
			Message: i18n.T(CodeUnsupportedType, nil),
			Actual:  fmt.Sprintf("%T", expr),
			Hint:    "type expressions are strings, *Descriptor, or *RecordSchema",
		}}
	}
}

// MustResolve is Resolve panicking on error, for schema definition sites.
func (s Scope) MustResolve(expr any) *Descriptor {
	d, err := s.Resolve(expr)
	if err != nil {
		panic(err)
	}
	return d
}

// Resolve normalizes a type expression against an empty scope. Expressions
// with forward references need Scope.Resolve.
func Resolve(expr any) (*Descriptor, error) {
	return Scope(nil).Resolve(expr)
}

// abstract container names are rejected when strict resolution is required:
// they declare no concrete element layout to convert into.
var abstractContainers = map[string]struct{}{
	"Sequence":        {},
	"MutableSequence": {},
	"Mapping":         {},
	"MutableMapping":  {},
	"Iterable":        {},
	"Collection":      {},
	"AbstractSet":     {},
	"MutableSet":      {},
}

// ---- type-expression scanner/parser ----

type exprToken int

const (
	tokEOF exprToken = iota
	tokIdent
	tokLBracket
	tokRBracket
	tokComma
	tokPipe
	tokEllipsis
)

type exprParser struct {
	scope Scope
	src   string
	pos   int
}

func (p *exprParser) syntaxError(msg string) error {
	return Issues{Issue{
		Path:    "/",
		Code:    CodeParseError,
		Message: i18n.T(CodeParseError, nil),
		Hint:    fmt.Sprintf("%s at offset %d in %q", msg, p.pos, p.src),
	}}
}

func (p *exprParser) unsupported(name string, hint string) error {
	return Issues{Issue{
		Path:    "/",
		Code:    CodeUnsupportedType,
		Message: i18n.T(CodeUnsupportedType, nil),
		Actual:  name,
		Hint:    hint,
	}}
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// peek returns the next token without consuming it.
func (p *exprParser) peek() (exprToken, string) {
	save := p.pos
	tok, text := p.next()
	p.pos = save
	return tok, text
}

func (p *exprParser) next() (exprToken, string) {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return tokEOF, ""
	}
	switch c := p.src[p.pos]; c {
	case '[':
		p.pos++
		return tokLBracket, "["
	case ']':
		p.pos++
		return tokRBracket, "]"
	case ',':
		p.pos++
		return tokComma, ","
	case '|':
		p.pos++
		return tokPipe, "|"
	case '.':
		if strings.HasPrefix(p.src[p.pos:], "...") {
			p.pos += 3
			return tokEllipsis, "..."
		}
	}
	start := p.pos
	for p.pos < len(p.src) && isIdentByte(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		p.pos++ // skip the offending byte so errors do not loop
		return tokIdent, p.src[start:p.pos]
	}
	return tokIdent, p.src[start:p.pos]
}

// parseUnion handles the pipe syntax: term ('|' term)*. Nested unions are
// spliced so Union[A, Union[B, C]] and A | B | C yield the same descriptor.
func (p *exprParser) parseUnion() (*Descriptor, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	alts := []*Descriptor{first}
	for {
		tok, _ := p.peek()
		if tok != tokPipe {
			break
		}
		p.next()
		d, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		alts = append(alts, d)
	}
	if len(alts) == 1 {
		return first, nil
	}
	return spliceUnion(alts), nil
}

func spliceUnion(alts []*Descriptor) *Descriptor {
	out := make([]*Descriptor, 0, len(alts))
	for _, a := range alts {
		if a.Kind == KindUnion {
			out = append(out, a.Elems...)
			continue
		}
		out = append(out, a)
	}
	return UnionOf(out...)
}

func (p *exprParser) parseTerm() (*Descriptor, error) {
	tok, name := p.next()
	if tok != tokIdent || name == "" || !isIdentByte(name[0]) {
		return nil, p.syntaxError("expected a type name")
	}
	var args []*Descriptor
	variadic := false
	if tok, _ := p.peek(); tok == tokLBracket {
		p.next()
		var err error
		args, variadic, err = p.parseArgs()
		if err != nil {
			return nil, err
		}
	}
	return p.applyTerm(name, args, variadic)
}

// parseArgs consumes up to and including the closing bracket. A trailing
// "..." marks the variadic tuple form.
func (p *exprParser) parseArgs() ([]*Descriptor, bool, error) {
	var args []*Descriptor
	variadic := false
	for {
		if tok, _ := p.peek(); tok == tokEllipsis {
			p.next()
			variadic = true
			if tok, _ := p.next(); tok != tokRBracket {
				return nil, false, p.syntaxError("'...' must be the last argument")
			}
			return args, true, nil
		}
		d, err := p.parseUnion()
		if err != nil {
			return nil, false, err
		}
		args = append(args, d)
		switch tok, _ := p.next(); tok {
		case tokComma:
			continue
		case tokRBracket:
			return args, variadic, nil
		default:
			return nil, false, p.syntaxError("expected ',' or ']'")
		}
	}
}

// applyTerm normalizes legacy and modern spellings via one dispatch table
// keyed by the name, then falls back to a scope lookup for record forward
// references.
func (p *exprParser) applyTerm(name string, args []*Descriptor, variadic bool) (*Descriptor, error) {
	if variadic && name != "tuple" && name != "Tuple" {
		return nil, p.syntaxError("'...' is only valid inside tuple[...]")
	}
	switch name {
	case "int", "integer":
		return p.scalar(Int(), name, args)
	case "float":
		return p.scalar(Float(), name, args)
	case "str", "string":
		return p.scalar(String(), name, args)
	case "bool", "boolean":
		return p.scalar(Bool(), name, args)
	case "Path", "path":
		return p.scalar(PathType(), name, args)
	case "None", "NoneType", "none", "nil":
		return p.scalar(NoneType(), name, args)
	case "Any", "any":
		return p.scalar(AnyType(), name, args)
	case "list", "List":
		if len(args) > 1 {
			return nil, p.syntaxError(name + " takes at most one argument")
		}
		return ListOf(oneArg(args)), nil
	case "set", "Set", "frozenset", "FrozenSet":
		if len(args) > 1 {
			return nil, p.syntaxError(name + " takes at most one argument")
		}
		return SetOf(oneArg(args)), nil
	case "dict", "Dict", "defaultdict", "DefaultDict":
		if len(args) == 0 {
			return DictOf(AnyType(), AnyType()), nil
		}
		if len(args) != 2 {
			return nil, p.syntaxError(name + " takes exactly two arguments")
		}
		return DictOf(args[0], args[1]), nil
	case "tuple", "Tuple":
		if variadic {
			if len(args) != 1 {
				return nil, p.syntaxError("variadic tuple takes exactly one element type")
			}
			return VariadicTupleOf(args[0]), nil
		}
		if len(args) == 0 {
			// an undefined tuple can hold anything
			return VariadicTupleOf(AnyType()), nil
		}
		return TupleOf(args...), nil
	case "Optional":
		if len(args) != 1 {
			return nil, p.syntaxError("Optional takes exactly one argument")
		}
		return OptionalOf(args[0]), nil
	case "Union":
		if len(args) == 0 {
			return nil, p.syntaxError("Union takes at least one argument")
		}
		if len(args) == 1 {
			return args[0], nil
		}
		return spliceUnion(args), nil
	}
	if _, ok := abstractContainers[name]; ok {
		return nil, p.unsupported(name, "abstract collections are not supported; use a concrete container type")
	}
	if rs, ok := p.scope[name]; ok {
		if len(args) > 0 {
			return nil, p.syntaxError("record types are not generic")
		}
		return RecordOf(rs), nil
	}
	return nil, p.unsupported(name, "unbound forward reference; register the record in the scope")
}

func (p *exprParser) scalar(d *Descriptor, name string, args []*Descriptor) (*Descriptor, error) {
	if len(args) > 0 {
		return nil, p.syntaxError(name + " is not a generic type")
	}
	return d, nil
}

func oneArg(args []*Descriptor) *Descriptor {
	if len(args) == 0 {
		return AnyType()
	}
	return args[0]
}
