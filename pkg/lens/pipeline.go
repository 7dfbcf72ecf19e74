package lens

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/datamodel"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"

	"github.com/ipldurl/resolve/pkg/ipldurlerr"
	"github.com/ipldurl/resolve/pkg/params"
)

// Apply runs the lens pipeline over node under parameters: link
// materialization, then schema typing, then a named ADL, in that order.
// Schema always precedes adl, so an ADL receives the schema-lensed view
// as its input when both appear on the same segment.
func Apply(ctx context.Context, sys System, cache *SchemaCache, node datamodel.Node, p params.Parameters) (Lens, error) {
	if node.Kind() == datamodel.Kind_Link {
		lk, err := node.AsLink()
		if err != nil {
			return nil, err
		}
		cl, ok := lk.(cidlink.Link)
		if !ok {
			return nil, &ipldurlerr.BadURL{Reason: "unsupported link implementation"}
		}
		node, err = sys.GetNode(ctx, cl.Cid)
		if err != nil {
			return nil, err
		}
	}

	var cur Lens = NewPlain(node)

	schemaStr, hasSchema := p.Get("schema")
	if hasSchema && schemaStr != "" {
		typeName, hasType := p.Get("type")
		if !hasType || typeName == "" {
			return nil, &ipldurlerr.BadURL{Reason: "schema parameter present without type"}
		}
		schemaCID, err := cid.Decode(schemaStr)
		if err != nil {
			return nil, &ipldurlerr.BadURL{Reason: "malformed schema CID: " + err.Error()}
		}
		sl, err := NewSchema(ctx, sys, cache, schemaCID, typeName, cur.Node())
		if err != nil {
			return nil, err
		}
		cur = sl
	}

	if adlName, hasADL := p.Get("adl"); hasADL && adlName != "" {
		fn, err := sys.ADLRegistry().Lookup(adlName)
		if err != nil {
			return nil, err
		}
		result, err := fn(ctx, cur.Node(), p, sys)
		if err != nil {
			return nil, err
		}
		cur = NewPlain(result)
	}

	return cur, nil
}

// ApplyTag builds a SchemaLens directly from a SchemaTag attached to a
// link: once the walker materializes the link's target, the same schema
// and expected type are applied to the loaded node before the walk
// continues.
func ApplyTag(ctx context.Context, sys System, cache *SchemaCache, tag *SchemaTag, node datamodel.Node) (Lens, error) {
	return NewSchema(ctx, sys, cache, tag.SchemaCID, tag.TypeName, node)
}
