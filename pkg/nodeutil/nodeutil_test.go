package nodeutil_test

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/node/basicnode"
	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"github.com/ipldurl/resolve/pkg/ipldurlerr"
	"github.com/ipldurl/resolve/pkg/nodeutil"
)

func TestAnyToNodeAndBackPreservesMapOrder(t *testing.T) {
	t.Parallel()

	kv := nodeutil.OrderedMap{
		{Key: "Goodbye", Value: "Cyberspace"},
		{Key: "Hello", Value: "World"},
	}
	n, err := nodeutil.AnyToNode(kv)
	require.NoError(t, err)

	back, err := nodeutil.NodeToAny(n)
	require.NoError(t, err)
	require.Equal(t, kv, back)
}

func TestAnyToNodeScalars(t *testing.T) {
	t.Parallel()

	cases := []any{"str", true, int64(7), float64(1.5), []byte("bytes"), nil}
	for _, v := range cases {
		n, err := nodeutil.AnyToNode(v)
		require.NoError(t, err)
		back, err := nodeutil.NodeToAny(n)
		require.NoError(t, err)
		require.Equal(t, v, back)
	}

	// Plain int widens to int64 on the way in.
	n, err := nodeutil.AnyToNode(7)
	require.NoError(t, err)
	back, err := nodeutil.NodeToAny(n)
	require.NoError(t, err)
	require.Equal(t, int64(7), back)
}

func TestAnyToNodeList(t *testing.T) {
	t.Parallel()

	n, err := nodeutil.BuildList("a", "b", int64(3))
	require.NoError(t, err)

	back, err := nodeutil.NodeToAny(n)
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b", int64(3)}, back)
}

func TestAnyToNodeLink(t *testing.T) {
	t.Parallel()

	sum, err := mh.Sum([]byte("x"), mh.SHA2_256, -1)
	require.NoError(t, err)
	c := cid.NewCidV1(cid.DagCBOR, sum)

	n, err := nodeutil.AnyToNode(c)
	require.NoError(t, err)
	back, err := nodeutil.NodeToAny(n)
	require.NoError(t, err)
	require.Equal(t, c, back)
}

func TestAnyToNodeUnsupportedType(t *testing.T) {
	t.Parallel()

	_, err := nodeutil.AnyToNode(make(chan int))
	require.Error(t, err)
}

func TestCopyIntoMapAndList(t *testing.T) {
	t.Parallel()

	src, err := nodeutil.AnyToNode(nodeutil.OrderedMap{
		{Key: "a", Value: []any{int64(1), int64(2)}},
		{Key: "b", Value: "c"},
	})
	require.NoError(t, err)

	nb := basicnode.Prototype.Any.NewBuilder()
	require.NoError(t, nodeutil.CopyInto(nb, src))
	dst := nb.Build()

	back, err := nodeutil.NodeToAny(dst)
	require.NoError(t, err)
	srcBack, err := nodeutil.NodeToAny(src)
	require.NoError(t, err)
	require.Equal(t, srcBack, back)
}

func TestSetMapKeyAddsAndReplaces(t *testing.T) {
	t.Parallel()

	n, err := nodeutil.AnyToNode(nodeutil.OrderedMap{{Key: "Hello", Value: "World"}})
	require.NoError(t, err)
	val, err := nodeutil.AnyToNode("Cyberspace")
	require.NoError(t, err)

	added, err := nodeutil.SetMapKey(basicnode.Prototype.Any, n, "Goodbye", val)
	require.NoError(t, err)
	back, err := nodeutil.NodeToAny(added)
	require.NoError(t, err)
	require.Equal(t, nodeutil.OrderedMap{{Key: "Hello", Value: "World"}, {Key: "Goodbye", Value: "Cyberspace"}}, back)

	replaced, err := nodeutil.SetMapKey(basicnode.Prototype.Any, added, "Hello", val)
	require.NoError(t, err)
	back, err = nodeutil.NodeToAny(replaced)
	require.NoError(t, err)
	require.Equal(t, nodeutil.OrderedMap{{Key: "Hello", Value: "Cyberspace"}, {Key: "Goodbye", Value: "Cyberspace"}}, back)
}

func TestDeleteMapKeyMissing(t *testing.T) {
	t.Parallel()

	n, err := nodeutil.AnyToNode(nodeutil.OrderedMap{{Key: "a", Value: "1"}})
	require.NoError(t, err)

	_, err = nodeutil.DeleteMapKey(basicnode.Prototype.Any, n, "missing")
	require.Error(t, err)
	var missing *ipldurlerr.MissingKey
	require.ErrorAs(t, err, &missing)
}

func TestListMutators(t *testing.T) {
	t.Parallel()

	n, err := nodeutil.BuildList("world")
	require.NoError(t, err)
	val, err := nodeutil.AnyToNode("cruel")
	require.NoError(t, err)

	inserted, err := nodeutil.InsertListAt(basicnode.Prototype.Any, n, 0, val)
	require.NoError(t, err)
	back, err := nodeutil.NodeToAny(inserted)
	require.NoError(t, err)
	require.Equal(t, []any{"cruel", "world"}, back)

	replaced, err := nodeutil.ReplaceListAt(basicnode.Prototype.Any, inserted, 1, val)
	require.NoError(t, err)
	back, err = nodeutil.NodeToAny(replaced)
	require.NoError(t, err)
	require.Equal(t, []any{"cruel", "cruel"}, back)

	removed, err := nodeutil.RemoveListAt(basicnode.Prototype.Any, replaced, 0)
	require.NoError(t, err)
	back, err = nodeutil.NodeToAny(removed)
	require.NoError(t, err)
	require.Equal(t, []any{"cruel"}, back)

	_, err = nodeutil.RemoveListAt(basicnode.Prototype.Any, removed, 5)
	require.Error(t, err)
}

func TestParseListIndexAppend(t *testing.T) {
	t.Parallel()

	idx, isAppend, err := nodeutil.ParseListIndex("-", 3)
	require.NoError(t, err)
	require.True(t, isAppend)
	require.Equal(t, 3, idx)

	idx, isAppend, err = nodeutil.ParseListIndex("1", 3)
	require.NoError(t, err)
	require.False(t, isAppend)
	require.Equal(t, 1, idx)

	_, _, err = nodeutil.ParseListIndex("nope", 3)
	require.Error(t, err)
}

func TestLookupListIndex(t *testing.T) {
	t.Parallel()

	n, err := nodeutil.BuildList("a", "b", "c")
	require.NoError(t, err)

	v, err := nodeutil.LookupListIndex(n, "1")
	require.NoError(t, err)
	s, err := v.AsString()
	require.NoError(t, err)
	require.Equal(t, "b", s)

	_, err = nodeutil.LookupListIndex(n, "not-a-number")
	require.Error(t, err)
}

func TestPrintable(t *testing.T) {
	t.Parallel()

	n, err := nodeutil.AnyToNode("hello")
	require.NoError(t, err)
	require.Equal(t, "hello", nodeutil.Printable(n))
}
