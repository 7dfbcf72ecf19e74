package lens

import (
	"context"
	"fmt"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/datamodel"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/ipld/go-ipld-prime/node/basicnode"

	"github.com/ipldurl/resolve/pkg/ipldurlerr"
	"github.com/ipldurl/resolve/pkg/nodeutil"
)

// parsedSchema pairs the type table compiled from one schema block with
// the DSL source it came from (SchemaMismatch diagnostics echo the DSL
// text back to the caller).
type parsedSchema struct {
	doc *schemaDoc
	dsl string
}

// SchemaCache memoizes schema compilation by CID, since a single resolve
// or patch walk typically revisits the same schema block at every hop of
// a tagged link chain.
type SchemaCache struct {
	mu    sync.Mutex
	byCID map[cid.Cid]*parsedSchema
}

// NewSchemaCache constructs an empty cache.
func NewSchemaCache() *SchemaCache {
	return &SchemaCache{byCID: make(map[cid.Cid]*parsedSchema)}
}

func (c *SchemaCache) compile(ctx context.Context, sys System, schemaCID cid.Cid) (*parsedSchema, error) {
	c.mu.Lock()
	if ps, ok := c.byCID[schemaCID]; ok {
		c.mu.Unlock()
		return ps, nil
	}
	c.mu.Unlock()

	dmtNode, err := sys.GetNode(ctx, schemaCID)
	if err != nil {
		return nil, err
	}
	// The schema block is stored as its DSL source text.
	dslText, err := dmtNode.AsString()
	if err != nil {
		if b, berr := dmtNode.AsBytes(); berr == nil {
			dslText = string(b)
		} else {
			return nil, &ipldurlerr.BadURL{Reason: "schema block is neither string nor bytes: " + err.Error()}
		}
	}

	doc, err := parseSchemaDSL(dslText)
	if err != nil {
		return nil, &ipldurlerr.SchemaMismatch{SchemaDSL: dslText, Cause: err}
	}

	ps := &parsedSchema{doc: doc, dsl: dslText}
	c.mu.Lock()
	c.byCID[schemaCID] = ps
	c.mu.Unlock()
	return ps, nil
}

// SchemaLens is a typed view over one node: construction converts the
// representation form into the natural form, and Substrate converts
// back, the inverse the patcher needs before re-saving.
//
// The conversion is interpreted directly from the parsed DSL rather
// than compiled through go-ipld-prime's schema.TypeSystem: that type
// system carries no representation strategy on map types at all (a
// "{String:String} representation listpairs" schema compiles to a
// plain map, losing exactly the behavior segment parameters select it
// for), so the subset interpreter in schemadsl.go stands in.
type SchemaLens struct {
	schemaCID cid.Cid
	typeName  string
	doc       *schemaDoc
	typ       *typeDefn
	natural   datamodel.Node
	dsl       string
}

// NewSchema builds a SchemaLens over raw (a representation-form node, as
// loaded from the store) using the type named typeName inside the schema
// block named by schemaCID.
func NewSchema(ctx context.Context, sys System, cache *SchemaCache, schemaCID cid.Cid, typeName string, raw datamodel.Node) (*SchemaLens, error) {
	ps, err := cache.compile(ctx, sys, schemaCID)
	if err != nil {
		return nil, err
	}
	td := ps.doc.typeByName(typeName)
	if td == nil {
		return nil, &ipldurlerr.SchemaMismatch{
			TypeName:      typeName,
			NodePrintable: nodeutil.Printable(raw),
			SchemaDSL:     ps.dsl,
			Cause:         fmt.Errorf("schema declares no type named %q", typeName),
		}
	}

	natural, err := toTyped(td, raw)
	if err != nil {
		return nil, &ipldurlerr.SchemaMismatch{
			TypeName:      typeName,
			NodePrintable: nodeutil.Printable(raw),
			SchemaDSL:     ps.dsl,
			Cause:         err,
		}
	}

	return &SchemaLens{
		schemaCID: schemaCID,
		typeName:  typeName,
		doc:       ps.doc,
		typ:       td,
		natural:   natural,
		dsl:       ps.dsl,
	}, nil
}

func (l *SchemaLens) Node() datamodel.Node {
	return l.natural
}

// Assembler returns the prototype sibling/child values are built with
// inside this view. The natural form is always plain data-model shape (a
// struct presents as a map regardless of representation strategy), so
// basicnode serves both lens kinds; Substrate is where representation
// reshaping happens, once, right before a save.
func (l *SchemaLens) Assembler() datamodel.NodePrototype {
	return basicnode.Prototype.Any
}

// Substrate returns to_representation(view): the representation-form
// node that serializes to the same block shape the lens was built from.
func (l *SchemaLens) Substrate() (datamodel.Node, error) {
	return toRepr(l.typ, l.natural)
}

// Rebuild re-wraps newNatural (same natural shape as Node()) as a fresh
// view of the same schema type. The patcher calls Substrate separately,
// once, to convert back to representation form right before saving.
func (l *SchemaLens) Rebuild(newNatural datamodel.Node) (Lens, error) {
	return &SchemaLens{
		schemaCID: l.schemaCID,
		typeName:  l.typeName,
		doc:       l.doc,
		typ:       l.typ,
		natural:   newNatural,
		dsl:       l.dsl,
	}, nil
}

// Lookup navigates to a struct field, map value, or list element by
// name, tagging the result when the field/element type is a link with
// an expected referenced type. Links nested deeper inside a field's
// shape fall through untagged.
func (l *SchemaLens) Lookup(name string) (LookupResult, error) {
	child, err := l.natural.LookupByString(name)
	if err != nil {
		child, err = nodeutil.LookupListIndex(l.natural, name)
		if err != nil {
			return LookupResult{}, &ipldurlerr.PathNotFound{Segment: name}
		}
	}

	if child.Kind() != datamodel.Kind_Link {
		return LookupResult{Node: child}, nil
	}

	lk, err := child.AsLink()
	if err != nil {
		return LookupResult{}, err
	}
	cl, ok := lk.(cidlink.Link)
	if !ok {
		return LookupResult{}, &ipldurlerr.BadURL{Reason: "unsupported link implementation"}
	}

	result := LookupResult{Link: cl.Cid}
	if ref, ok := l.childRef(name); ok {
		if target, ok := l.linkTarget(ref); ok {
			result.Tag = &SchemaTag{SchemaCID: l.schemaCID, TypeName: target}
		}
	}
	return result, nil
}

// childRef resolves the declared type reference of the child named name.
func (l *SchemaLens) childRef(name string) (typeRef, bool) {
	switch l.typ.Kind {
	case kindStruct:
		for _, f := range l.typ.Fields {
			if f.Name == name {
				return f.Type, true
			}
		}
		return typeRef{}, false
	case kindMap, kindList:
		return l.typ.Value, true
	default:
		return typeRef{}, false
	}
}

// linkTarget reports the expected type a link reference points at:
// either directly ("&Name") or through a named link type declared as
// "type T &Name".
func (l *SchemaLens) linkTarget(ref typeRef) (string, bool) {
	if ref.Link {
		return ref.Name, true
	}
	if td := l.doc.typeByName(ref.Name); td != nil && td.Kind == kindLink && td.Expected != "" {
		return td.Expected, true
	}
	return "", false
}

// toTyped converts a representation-form node into the type's natural
// form, validating shape along the way.
func toTyped(td *typeDefn, raw datamodel.Node) (datamodel.Node, error) {
	switch td.Kind {
	case kindStruct:
		switch td.Repr {
		case "map":
			if raw.Kind() != datamodel.Kind_Map {
				return nil, fmt.Errorf("struct %s representation map: node is %v, not map", td.Name, raw.Kind())
			}
			for _, f := range td.Fields {
				if f.Optional {
					continue
				}
				if _, err := raw.LookupByString(f.Name); err != nil {
					return nil, fmt.Errorf("struct %s: missing field %q", td.Name, f.Name)
				}
			}
			return raw, nil
		case "tuple":
			if raw.Kind() != datamodel.Kind_List {
				return nil, fmt.Errorf("struct %s representation tuple: node is %v, not list", td.Name, raw.Kind())
			}
			if int(raw.Length()) != len(td.Fields) {
				return nil, fmt.Errorf("struct %s representation tuple: %d elements for %d fields", td.Name, raw.Length(), len(td.Fields))
			}
			nb := basicnode.Prototype.Map.NewBuilder()
			ma, err := nb.BeginMap(int64(len(td.Fields)))
			if err != nil {
				return nil, err
			}
			for i, f := range td.Fields {
				v, err := raw.LookupByIndex(int64(i))
				if err != nil {
					return nil, err
				}
				if err := ma.AssembleKey().AssignString(f.Name); err != nil {
					return nil, err
				}
				if err := nodeutil.CopyInto(ma.AssembleValue(), v); err != nil {
					return nil, err
				}
			}
			if err := ma.Finish(); err != nil {
				return nil, err
			}
			return nb.Build(), nil
		default:
			return nil, fmt.Errorf("struct %s: unsupported representation %q", td.Name, td.Repr)
		}
	case kindMap:
		switch td.Repr {
		case "map":
			if raw.Kind() != datamodel.Kind_Map {
				return nil, fmt.Errorf("map %s: node is %v, not map", td.Name, raw.Kind())
			}
			return raw, nil
		case "listpairs":
			if raw.Kind() != datamodel.Kind_List {
				return nil, fmt.Errorf("map %s representation listpairs: node is %v, not list", td.Name, raw.Kind())
			}
			nb := basicnode.Prototype.Map.NewBuilder()
			ma, err := nb.BeginMap(raw.Length())
			if err != nil {
				return nil, err
			}
			it := raw.ListIterator()
			for !it.Done() {
				_, pair, err := it.Next()
				if err != nil {
					return nil, err
				}
				if pair.Kind() != datamodel.Kind_List || pair.Length() != 2 {
					return nil, fmt.Errorf("map %s representation listpairs: entry is not a two-element list", td.Name)
				}
				k, err := pair.LookupByIndex(0)
				if err != nil {
					return nil, err
				}
				ks, err := k.AsString()
				if err != nil {
					return nil, fmt.Errorf("map %s representation listpairs: key is not a string: %w", td.Name, err)
				}
				v, err := pair.LookupByIndex(1)
				if err != nil {
					return nil, err
				}
				if err := ma.AssembleKey().AssignString(ks); err != nil {
					return nil, err
				}
				if err := nodeutil.CopyInto(ma.AssembleValue(), v); err != nil {
					return nil, err
				}
			}
			if err := ma.Finish(); err != nil {
				return nil, err
			}
			return nb.Build(), nil
		default:
			return nil, fmt.Errorf("map %s: unsupported representation %q", td.Name, td.Repr)
		}
	case kindList:
		if raw.Kind() != datamodel.Kind_List {
			return nil, fmt.Errorf("list %s: node is %v, not list", td.Name, raw.Kind())
		}
		return raw, nil
	case kindLink:
		if raw.Kind() != datamodel.Kind_Link {
			return nil, fmt.Errorf("link %s: node is %v, not link", td.Name, raw.Kind())
		}
		return raw, nil
	default:
		if want, ok := scalarKind(td.Scalar); ok && raw.Kind() != want {
			return nil, fmt.Errorf("%s %s: node is %v", td.Scalar, td.Name, raw.Kind())
		}
		return raw, nil
	}
}

// toRepr converts a natural-form node back into the representation form
// the type serializes as; the inverse of toTyped.
func toRepr(td *typeDefn, natural datamodel.Node) (datamodel.Node, error) {
	switch {
	case td.Kind == kindStruct && td.Repr == "tuple":
		nb := basicnode.Prototype.List.NewBuilder()
		la, err := nb.BeginList(int64(len(td.Fields)))
		if err != nil {
			return nil, err
		}
		for _, f := range td.Fields {
			v, err := natural.LookupByString(f.Name)
			if err != nil {
				return nil, fmt.Errorf("struct %s representation tuple: missing field %q", td.Name, f.Name)
			}
			if err := nodeutil.CopyInto(la.AssembleValue(), v); err != nil {
				return nil, err
			}
		}
		if err := la.Finish(); err != nil {
			return nil, err
		}
		return nb.Build(), nil
	case td.Kind == kindMap && td.Repr == "listpairs":
		nb := basicnode.Prototype.List.NewBuilder()
		la, err := nb.BeginList(natural.Length())
		if err != nil {
			return nil, err
		}
		it := natural.MapIterator()
		for !it.Done() {
			k, v, err := it.Next()
			if err != nil {
				return nil, err
			}
			ks, err := k.AsString()
			if err != nil {
				return nil, err
			}
			pb := basicnode.Prototype.List.NewBuilder()
			pa, err := pb.BeginList(2)
			if err != nil {
				return nil, err
			}
			if err := pa.AssembleValue().AssignString(ks); err != nil {
				return nil, err
			}
			if err := nodeutil.CopyInto(pa.AssembleValue(), v); err != nil {
				return nil, err
			}
			if err := pa.Finish(); err != nil {
				return nil, err
			}
			if err := la.AssembleValue().AssignNode(pb.Build()); err != nil {
				return nil, err
			}
		}
		if err := la.Finish(); err != nil {
			return nil, err
		}
		return nb.Build(), nil
	default:
		return natural, nil
	}
}

func scalarKind(name string) (datamodel.Kind, bool) {
	switch name {
	case "string":
		return datamodel.Kind_String, true
	case "int":
		return datamodel.Kind_Int, true
	case "float":
		return datamodel.Kind_Float, true
	case "bool":
		return datamodel.Kind_Bool, true
	case "bytes":
		return datamodel.Kind_Bytes, true
	case "null":
		return datamodel.Kind_Null, true
	case "link":
		return datamodel.Kind_Link, true
	default:
		return 0, false
	}
}

var _ Lens = (*SchemaLens)(nil)
