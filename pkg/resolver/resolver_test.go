package resolver_test

import (
	"context"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"github.com/ipldurl/resolve/pkg/blockstore"
	"github.com/ipldurl/resolve/pkg/ipldcid"
	"github.com/ipldurl/resolve/pkg/nodeutil"
	"github.com/ipldurl/resolve/pkg/resolver"
	"github.com/ipldurl/resolve/pkg/system"
	"github.com/ipldurl/resolve/pkg/urlmodel"
)

func save(t *testing.T, sys *system.System, v any) (cidStr string) {
	t.Helper()
	n, err := nodeutil.AnyToNode(v)
	require.NoError(t, err)
	c, err := sys.SaveNode(context.Background(), n, ipldcid.DagCBOR)
	require.NoError(t, err)
	return c.String()
}

// Resolving a single scalar segment off a plain map.
func TestResolveSimpleScalar(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sys := system.New(blockstore.NewMemory())
	cidStr := save(t, sys, nodeutil.OrderedMap{{Key: "hello", Value: "world"}})

	u, err := urlmodel.Parse("ipld://" + cidStr + "/hello")
	require.NoError(t, err)

	res, err := resolver.Resolve(ctx, sys, u, resolver.Options{})
	require.NoError(t, err)
	require.False(t, res.IsLink())
	s, err := res.Node.AsString()
	require.NoError(t, err)
	require.Equal(t, "world", s)
}

// Root-level schema parameters apply before any segment is walked.
func TestResolveRootLevelSchemaListpairs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sys := system.New(blockstore.NewMemory())

	schemaCIDStr := save(t, sys, `type Example {String:String} representation listpairs`)
	raw, err := nodeutil.BuildList(mustPair(t, "hello", "world"), mustPair(t, "goodbye", "cyberspace"))
	require.NoError(t, err)
	c, err := sys.SaveNode(ctx, raw, ipldcid.DagCBOR)
	require.NoError(t, err)

	u, err := urlmodel.Parse("ipld://" + c.String() + ";schema=" + schemaCIDStr + ";type=Example/goodbye")
	require.NoError(t, err)

	res, err := resolver.Resolve(ctx, sys, u, resolver.Options{})
	require.NoError(t, err)
	s, err := res.Node.AsString()
	require.NoError(t, err)
	require.Equal(t, "cyberspace", s)
}

// A tuple struct field typed as a link must re-apply the tagged
// nested schema once the resolver crosses the link.
func TestResolveTupleWithLinkedField(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sys := system.New(blockstore.NewMemory())

	schemaCIDStr := save(t, sys, `type NestedExample struct {
	region String
} representation tuple

type Example struct {
	Hello String
	Goodbye &NestedExample
} representation tuple`)

	nestedRaw, err := nodeutil.BuildList("a fancy region")
	require.NoError(t, err)
	nestedCID, err := sys.SaveNode(ctx, nestedRaw, ipldcid.DagCBOR)
	require.NoError(t, err)

	outerRaw, err := nodeutil.BuildList("World", nestedCID)
	require.NoError(t, err)
	outerCID, err := sys.SaveNode(ctx, outerRaw, ipldcid.DagCBOR)
	require.NoError(t, err)

	u, err := urlmodel.Parse("ipld://" + outerCID.String() + ";schema=" + schemaCIDStr + ";type=Example/Goodbye/region")
	require.NoError(t, err)

	res, err := resolver.Resolve(ctx, sys, u, resolver.Options{})
	require.NoError(t, err)
	s, err := res.Node.AsString()
	require.NoError(t, err)
	require.Equal(t, "a fancy region", s)
}

// A trailing slash on the URL means
// resolve the final link's target; without it, an unfollowed link at
// the final hop is returned as a CID rather than materialized.
func TestResolveFinalLinkTrailingSlashPrecedence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sys := system.New(blockstore.NewMemory())

	leafCIDStr := save(t, sys, "leaf value")
	leafCID, err := cid.Decode(leafCIDStr)
	require.NoError(t, err)

	rootCIDStr := save(t, sys, nodeutil.OrderedMap{{Key: "link", Value: leafCID}})

	noSlash, err := urlmodel.Parse("ipld://" + rootCIDStr + "/link")
	require.NoError(t, err)
	res, err := resolver.Resolve(ctx, sys, noSlash, resolver.Options{})
	require.NoError(t, err)
	require.True(t, res.IsLink())
	require.Equal(t, leafCID, res.Link)

	withSlash, err := urlmodel.Parse("ipld://" + rootCIDStr + "/link/")
	require.NoError(t, err)
	res, err = resolver.Resolve(ctx, sys, withSlash, resolver.Options{})
	require.NoError(t, err)
	require.False(t, res.IsLink())
	s, err := res.Node.AsString()
	require.NoError(t, err)
	require.Equal(t, "leaf value", s)
}

// Options.ResolveFinalCID overrides the URL's own flag either way.
func TestResolveFinalCIDOptionOverridesURL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	sys := system.New(blockstore.NewMemory())

	leafCIDStr := save(t, sys, "leaf value")
	leafCID, err := cid.Decode(leafCIDStr)
	require.NoError(t, err)
	rootCIDStr := save(t, sys, nodeutil.OrderedMap{{Key: "link", Value: leafCID}})

	u, err := urlmodel.Parse("ipld://" + rootCIDStr + "/link")
	require.NoError(t, err)

	follow := true
	res, err := resolver.Resolve(ctx, sys, u, resolver.Options{ResolveFinalCID: &follow})
	require.NoError(t, err)
	require.False(t, res.IsLink())

	uSlash, err := urlmodel.Parse("ipld://" + rootCIDStr + "/link/")
	require.NoError(t, err)
	dontFollow := false
	res, err = resolver.Resolve(ctx, sys, uSlash, resolver.Options{ResolveFinalCID: &dontFollow})
	require.NoError(t, err)
	require.True(t, res.IsLink())
	require.Equal(t, leafCID, res.Link)
}

func mustPair(t *testing.T, a, b string) any {
	t.Helper()
	n, err := nodeutil.BuildList(a, b)
	require.NoError(t, err)
	return n
}
