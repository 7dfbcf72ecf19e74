package lens_test

import (
	"context"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/datamodel"
	"github.com/stretchr/testify/require"

	"github.com/ipldurl/resolve/pkg/blockstore"
	"github.com/ipldurl/resolve/pkg/ipldcid"
	"github.com/ipldurl/resolve/pkg/ipldurlerr"
	"github.com/ipldurl/resolve/pkg/lens"
	"github.com/ipldurl/resolve/pkg/nodeutil"
	"github.com/ipldurl/resolve/pkg/params"
	"github.com/ipldurl/resolve/pkg/system"
)

func saveDSL(t *testing.T, sys *system.System, dsl string) cid.Cid {
	t.Helper()
	n, err := nodeutil.AnyToNode(dsl)
	require.NoError(t, err)
	c, err := sys.SaveNode(context.Background(), n, ipldcid.DagCBOR)
	require.NoError(t, err)
	return c
}

func mustList(t *testing.T, items ...any) datamodel.Node {
	t.Helper()
	l, err := nodeutil.BuildList(items...)
	require.NoError(t, err)
	return l
}

func TestPlainLensLookupScalarAndList(t *testing.T) {
	t.Parallel()

	n, err := nodeutil.AnyToNode(nodeutil.OrderedMap{
		{Key: "hello", Value: "world"},
		{Key: "items", Value: []any{"a", "b"}},
	})
	require.NoError(t, err)

	pl := lens.NewPlain(n)
	res, err := pl.Lookup("hello")
	require.NoError(t, err)
	require.False(t, res.IsLink())
	s, err := res.Node.AsString()
	require.NoError(t, err)
	require.Equal(t, "world", s)

	items, err := pl.Lookup("items")
	require.NoError(t, err)
	itemsLens := lens.NewPlain(items.Node)
	idx, err := itemsLens.Lookup("1")
	require.NoError(t, err)
	s, err = idx.Node.AsString()
	require.NoError(t, err)
	require.Equal(t, "b", s)

	_, err = pl.Lookup("missing")
	require.Error(t, err)
	var notFound *ipldurlerr.PathNotFound
	require.ErrorAs(t, err, &notFound)
}

// A listpairs-represented map must present its natural Kind_Map
// shape even though the stored representation is a list of pairs.
func TestSchemaLensListpairs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := blockstore.NewMemory()
	sys := system.New(store)

	schemaCID := saveDSL(t, sys, `type Example {String:String} representation listpairs`)

	raw := mustList(t,
		mustList(t, "hello", "world"),
		mustList(t, "goodbye", "cyberspace"),
	)

	sl, err := lens.NewSchema(ctx, sys, sys.SchemaCache, schemaCID, "Example", raw)
	require.NoError(t, err)
	require.Equal(t, "map", sl.Node().Kind().String())

	res, err := sl.Lookup("hello")
	require.NoError(t, err)
	v, err := res.Node.AsString()
	require.NoError(t, err)
	require.Equal(t, "world", v)

	sub, err := sl.Substrate()
	require.NoError(t, err)
	require.Equal(t, "list", sub.Kind().String())
}

// A tuple-represented struct field typed as a link to another
// struct must be tagged so the resolver reapplies NestedExample once
// it follows the link.
func TestSchemaLensTupleWithLinkTag(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := blockstore.NewMemory()
	sys := system.New(store)

	schemaCID := saveDSL(t, sys, `type NestedExample struct {
	region String
} representation tuple

type Example struct {
	Hello String
	Goodbye &NestedExample
} representation tuple`)

	nestedRaw := mustList(t, "a fancy region")
	nestedCID, err := sys.SaveNode(ctx, nestedRaw, ipldcid.DagCBOR)
	require.NoError(t, err)

	outerRaw := mustList(t, "World", nestedCID)

	sl, err := lens.NewSchema(ctx, sys, sys.SchemaCache, schemaCID, "Example", outerRaw)
	require.NoError(t, err)

	hello, err := sl.Lookup("Hello")
	require.NoError(t, err)
	v, err := hello.Node.AsString()
	require.NoError(t, err)
	require.Equal(t, "World", v)

	goodbye, err := sl.Lookup("Goodbye")
	require.NoError(t, err)
	require.True(t, goodbye.IsLink())
	require.Equal(t, nestedCID, goodbye.Link)
	require.NotNil(t, goodbye.Tag)
	require.Equal(t, "NestedExample", goodbye.Tag.TypeName)
	require.Equal(t, schemaCID, goodbye.Tag.SchemaCID)

	loaded, err := sys.GetNode(ctx, goodbye.Link)
	require.NoError(t, err)
	nested, err := lens.ApplyTag(ctx, sys, sys.SchemaCache, goodbye.Tag, loaded)
	require.NoError(t, err)

	region, err := nested.Lookup("region")
	require.NoError(t, err)
	s, err := region.Node.AsString()
	require.NoError(t, err)
	require.Equal(t, "a fancy region", s)
}

// Ordering and tie-breaks: the ADL receives the already schema-lensed
// node, not the raw representation form.
func TestApplyPipelineSchemaBeforeADL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := blockstore.NewMemory()
	sys := system.New(store)

	schemaCID := saveDSL(t, sys, `type Example {String:String} representation listpairs`)

	var sawKind datamodel.Kind
	sys.Registry.Register("mark", func(ctx context.Context, node datamodel.Node, p params.Parameters, s lens.System) (datamodel.Node, error) {
		sawKind = node.Kind()
		return node, nil
	})

	raw := mustList(t, mustList(t, "hello", "world"))

	p := params.New(
		params.Pair{Key: "schema", Value: schemaCID.String()},
		params.Pair{Key: "type", Value: "Example"},
		params.Pair{Key: "adl", Value: "mark"},
	)
	got, err := lens.Apply(ctx, sys, sys.SchemaCache, raw, p)
	require.NoError(t, err)
	require.Equal(t, "map", got.Node().Kind().String())
	require.Equal(t, datamodel.Kind_Map, sawKind, "ADL must see the schema-typed natural form, not the raw list representation")
}

func TestApplyUnknownADL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := blockstore.NewMemory()
	sys := system.New(store)

	n, err := nodeutil.AnyToNode("leaf")
	require.NoError(t, err)
	p := params.New(params.Pair{Key: "adl", Value: "nope"})

	_, err = lens.Apply(ctx, sys, sys.SchemaCache, n, p)
	require.Error(t, err)
	var unknown *ipldurlerr.UnknownADL
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "nope", unknown.Name)
}

func TestApplySchemaWithoutTypeIsBadURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := blockstore.NewMemory()
	sys := system.New(store)

	schemaCID := saveDSL(t, sys, `type Example {String:String} representation listpairs`)
	n, err := nodeutil.AnyToNode("leaf")
	require.NoError(t, err)
	p := params.New(params.Pair{Key: "schema", Value: schemaCID.String()})

	_, err = lens.Apply(ctx, sys, sys.SchemaCache, n, p)
	require.Error(t, err)
	var badURL *ipldurlerr.BadURL
	require.ErrorAs(t, err, &badURL)
}

// A struct with the default map representation validates required
// fields and presents the stored map unchanged.
func TestSchemaLensStructMapRepresentation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sys := system.New(blockstore.NewMemory())

	schemaCID := saveDSL(t, sys, `type Example struct {
	Hello String
	Count Int
}`)

	raw, err := nodeutil.AnyToNode(nodeutil.OrderedMap{
		{Key: "Hello", Value: "World"},
		{Key: "Count", Value: int64(3)},
	})
	require.NoError(t, err)

	sl, err := lens.NewSchema(ctx, sys, sys.SchemaCache, schemaCID, "Example", raw)
	require.NoError(t, err)

	res, err := sl.Lookup("Count")
	require.NoError(t, err)
	n, err := res.Node.AsInt()
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	sub, err := sl.Substrate()
	require.NoError(t, err)
	require.Equal(t, "map", sub.Kind().String())

	incomplete, err := nodeutil.AnyToNode(nodeutil.OrderedMap{{Key: "Hello", Value: "World"}})
	require.NoError(t, err)
	_, err = lens.NewSchema(ctx, sys, sys.SchemaCache, schemaCID, "Example", incomplete)
	require.Error(t, err)
	var mismatch *ipldurlerr.SchemaMismatch
	require.ErrorAs(t, err, &mismatch)
}

// Map values declared "&T" tag every looked-up link with the expected
// type, same as struct fields do.
func TestSchemaLensMapWithLinkValuesTagsLookups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sys := system.New(blockstore.NewMemory())

	schemaCID := saveDSL(t, sys, `type Nested struct {
	region String
} representation tuple

type Index {String:&Nested}`)

	nestedCID, err := sys.SaveNode(ctx, mustList(t, "somewhere"), ipldcid.DagCBOR)
	require.NoError(t, err)

	raw, err := nodeutil.AnyToNode(nodeutil.OrderedMap{{Key: "first", Value: nestedCID}})
	require.NoError(t, err)

	sl, err := lens.NewSchema(ctx, sys, sys.SchemaCache, schemaCID, "Index", raw)
	require.NoError(t, err)

	res, err := sl.Lookup("first")
	require.NoError(t, err)
	require.True(t, res.IsLink())
	require.NotNil(t, res.Tag)
	require.Equal(t, "Nested", res.Tag.TypeName)
}

func TestSchemaUnknownTypeNameIsSchemaMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sys := system.New(blockstore.NewMemory())

	schemaCID := saveDSL(t, sys, `type Example {String:String} representation listpairs`)
	n, err := nodeutil.AnyToNode("leaf")
	require.NoError(t, err)

	_, err = lens.NewSchema(ctx, sys, sys.SchemaCache, schemaCID, "Nope", n)
	require.Error(t, err)
	var mismatch *ipldurlerr.SchemaMismatch
	require.ErrorAs(t, err, &mismatch)
	require.Contains(t, mismatch.SchemaDSL, "listpairs")
}

func TestSchemaUnparsableDSLIsSchemaMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sys := system.New(blockstore.NewMemory())

	schemaCID := saveDSL(t, sys, `type Broken struct {`)
	n, err := nodeutil.AnyToNode("leaf")
	require.NoError(t, err)

	_, err = lens.NewSchema(ctx, sys, sys.SchemaCache, schemaCID, "Broken", n)
	require.Error(t, err)
	var mismatch *ipldurlerr.SchemaMismatch
	require.ErrorAs(t, err, &mismatch)
}

// Shape mismatches (a listpairs map fed a scalar) surface the node's
// printable form and the DSL in the diagnostic.
func TestSchemaShapeMismatchDiagnostic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sys := system.New(blockstore.NewMemory())

	schemaCID := saveDSL(t, sys, `type Example {String:String} representation listpairs`)
	n, err := nodeutil.AnyToNode("just a string")
	require.NoError(t, err)

	_, err = lens.NewSchema(ctx, sys, sys.SchemaCache, schemaCID, "Example", n)
	require.Error(t, err)
	var mismatch *ipldurlerr.SchemaMismatch
	require.ErrorAs(t, err, &mismatch)
	require.Contains(t, mismatch.NodePrintable, "just a string")
	require.Contains(t, mismatch.SchemaDSL, "representation listpairs")
}

func TestRegistryNamesPreservesOrder(t *testing.T) {
	t.Parallel()

	r := lens.NewRegistry()
	noop := func(ctx context.Context, node datamodel.Node, p params.Parameters, s lens.System) (datamodel.Node, error) {
		return node, nil
	}
	r.Register("b", noop)
	r.Register("a", noop)
	r.Register("b", noop)

	require.Equal(t, []string{"b", "a"}, r.Names())
}
