package lens

import (
	"fmt"
	"strings"
)

// This file holds the schema DSL subset the lens pipeline understands:
// struct declarations (map and tuple representations), map declarations
// (map and listpairs representations), list declarations, link
// declarations with an expected type, and scalar declarations. The
// subset covers what URL segment parameters can select; anything beyond
// it (unions, inline type definitions) is rejected at parse time so the
// failure surfaces in the SchemaMismatch diagnostic rather than as a
// silently wrong walk.

type typeKind int

const (
	kindScalar typeKind = iota
	kindStruct
	kindMap
	kindList
	kindLink
)

// typeRef names the type of a field, map value, or list element. Link is
// set when the reference was written "&Name", meaning a link whose
// target is expected to decode as Name.
type typeRef struct {
	Name string
	Link bool
}

type fieldDefn struct {
	Name     string
	Type     typeRef
	Optional bool
	Nullable bool
}

type typeDefn struct {
	Name     string
	Kind     typeKind
	Scalar   string      // kindScalar: string, int, float, bool, bytes, any, null, link
	Fields   []fieldDefn // kindStruct, in declaration order
	Repr     string      // kindStruct: map|tuple; kindMap: map|listpairs
	KeyType  string      // kindMap
	Value    typeRef     // kindMap, kindList
	Expected string      // kindLink: the "&Name" target, "" for a bare link
}

// schemaDoc is the compiled form of one schema block: every declared
// type by name, plus declaration order for diagnostics.
type schemaDoc struct {
	names []string
	types map[string]*typeDefn
}

func (d *schemaDoc) typeByName(name string) *typeDefn {
	return d.types[name]
}

var scalarNames = map[string]bool{
	"string": true,
	"int":    true,
	"float":  true,
	"bool":   true,
	"bytes":  true,
	"any":    true,
	"null":   true,
	"link":   true,
}

// parseSchemaDSL compiles schema DSL source text into a schemaDoc.
func parseSchemaDSL(src string) (*schemaDoc, error) {
	p := &dslParser{toks: tokenize(src)}
	doc := &schemaDoc{types: make(map[string]*typeDefn)}
	for !p.done() {
		if err := p.expectIdent("type"); err != nil {
			return nil, err
		}
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		td, err := p.parseDefn(name)
		if err != nil {
			return nil, err
		}
		if _, dup := doc.types[name]; dup {
			return nil, fmt.Errorf("schema dsl: duplicate type %q", name)
		}
		doc.names = append(doc.names, name)
		doc.types[name] = td
	}
	if len(doc.names) == 0 {
		return nil, fmt.Errorf("schema dsl: no type declarations")
	}
	return doc, nil
}

type dslParser struct {
	toks []string
	pos  int
}

func (p *dslParser) done() bool {
	return p.pos >= len(p.toks)
}

func (p *dslParser) peek() string {
	if p.done() {
		return ""
	}
	return p.toks[p.pos]
}

func (p *dslParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *dslParser) expect(t string) error {
	if got := p.next(); got != t {
		return fmt.Errorf("schema dsl: expected %q, got %q", t, got)
	}
	return nil
}

func (p *dslParser) expectIdent(t string) error {
	if got := p.next(); got != t {
		return fmt.Errorf("schema dsl: expected keyword %q, got %q", t, got)
	}
	return nil
}

func (p *dslParser) ident() (string, error) {
	t := p.next()
	if t == "" || strings.ContainsAny(t, "{}[]&:") {
		return "", fmt.Errorf("schema dsl: expected name, got %q", t)
	}
	return t, nil
}

func (p *dslParser) parseDefn(name string) (*typeDefn, error) {
	switch t := p.next(); t {
	case "struct":
		return p.parseStruct(name)
	case "{":
		return p.parseMap(name)
	case "[":
		return p.parseList(name)
	case "&":
		target, err := p.ident()
		if err != nil {
			return nil, err
		}
		return &typeDefn{Name: name, Kind: kindLink, Expected: target}, nil
	default:
		if !scalarNames[strings.ToLower(t)] {
			return nil, fmt.Errorf("schema dsl: type %s: unsupported declaration %q", name, t)
		}
		return &typeDefn{Name: name, Kind: kindScalar, Scalar: strings.ToLower(t)}, nil
	}
}

func (p *dslParser) parseStruct(name string) (*typeDefn, error) {
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	td := &typeDefn{Name: name, Kind: kindStruct, Repr: "map"}
	for p.peek() != "}" {
		if p.done() {
			return nil, fmt.Errorf("schema dsl: type %s: unterminated struct body", name)
		}
		f, err := p.parseField(name)
		if err != nil {
			return nil, err
		}
		td.Fields = append(td.Fields, f)
	}
	p.next() // consume "}"
	repr, err := p.parseRepr(name, "map", "tuple")
	if err != nil {
		return nil, err
	}
	td.Repr = repr
	return td, nil
}

func (p *dslParser) parseField(structName string) (fieldDefn, error) {
	f := fieldDefn{}
	var err error
	f.Name, err = p.ident()
	if err != nil {
		return f, err
	}
	for {
		switch p.peek() {
		case "optional":
			f.Optional = true
			p.next()
			continue
		case "nullable":
			f.Nullable = true
			p.next()
			continue
		}
		break
	}
	f.Type, err = p.parseRef(structName + "." + f.Name)
	return f, err
}

func (p *dslParser) parseMap(name string) (*typeDefn, error) {
	key, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	val, err := p.parseRef(name)
	if err != nil {
		return nil, err
	}
	if err := p.expect("}"); err != nil {
		return nil, err
	}
	repr, err := p.parseRepr(name, "map", "listpairs")
	if err != nil {
		return nil, err
	}
	return &typeDefn{Name: name, Kind: kindMap, KeyType: key, Value: val, Repr: repr}, nil
}

func (p *dslParser) parseList(name string) (*typeDefn, error) {
	val, err := p.parseRef(name)
	if err != nil {
		return nil, err
	}
	if err := p.expect("]"); err != nil {
		return nil, err
	}
	return &typeDefn{Name: name, Kind: kindList, Value: val}, nil
}

// parseRef reads a type reference: a bare name, or "&Name" for a link
// expecting Name. Inline definitions ("{...}" or "[...]" in reference
// position) are outside the supported subset.
func (p *dslParser) parseRef(where string) (typeRef, error) {
	switch t := p.next(); t {
	case "&":
		target, err := p.ident()
		if err != nil {
			return typeRef{}, err
		}
		return typeRef{Name: target, Link: true}, nil
	case "{", "[":
		return typeRef{}, fmt.Errorf("schema dsl: %s: inline type definitions are not supported", where)
	case "", "}", "]", ":":
		return typeRef{}, fmt.Errorf("schema dsl: %s: expected type reference, got %q", where, t)
	default:
		return typeRef{Name: t}, nil
	}
}

// parseRepr consumes an optional "representation <name>" clause,
// defaulting to dflt and restricting to the listed alternatives.
func (p *dslParser) parseRepr(typeName, dflt string, allowed ...string) (string, error) {
	if p.peek() != "representation" {
		return dflt, nil
	}
	p.next()
	repr, err := p.ident()
	if err != nil {
		return "", err
	}
	if repr == dflt {
		return repr, nil
	}
	for _, a := range allowed {
		if repr == a {
			return repr, nil
		}
	}
	return "", fmt.Errorf("schema dsl: type %s: unsupported representation %q", typeName, repr)
}

// tokenize splits schema DSL source into identifier and punctuation
// tokens, skipping whitespace and "#" comments.
func tokenize(src string) []string {
	var toks []string
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == ',':
			i++
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '{' || c == '}' || c == '[' || c == ']' || c == '&' || c == ':':
			toks = append(toks, string(c))
			i++
		default:
			j := i
			for j < len(src) && !strings.ContainsRune(" \t\r\n,#{}[]&:", rune(src[j])) {
				j++
			}
			toks = append(toks, src[i:j])
			i = j
		}
	}
	return toks
}
