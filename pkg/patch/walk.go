package patch

import (
	"context"
	"strconv"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/datamodel"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/ipld/go-ipld-prime/node/basicnode"

	"github.com/ipldurl/resolve/pkg/ipldcid"
	"github.com/ipldurl/resolve/pkg/ipldurlerr"
	"github.com/ipldurl/resolve/pkg/lens"
	"github.com/ipldurl/resolve/pkg/nodeutil"
	"github.com/ipldurl/resolve/pkg/params"
	"github.com/ipldurl/resolve/pkg/system"
	"github.com/ipldurl/resolve/pkg/urlmodel"
)

// leafMutator applies one operation's effect directly to a leaf's
// parent container, returning the parent's replacement node.
type leafMutator func(proto datamodel.NodePrototype, parent datamodel.Node, leaf string) (datamodel.Node, error)

// walkAndMutate descends rootCID along steps, applies mutate at the
// leaf, rebuilds every ancestor bottom-up (re-saving link children under
// their own original codec), and returns the new root CID.
func walkAndMutate(ctx context.Context, sys *system.System, rootCID cid.Cid, rootParams params.Parameters, steps []segmentStep, mutate leafMutator) (cid.Cid, error) {
	if len(steps) == 0 {
		return cid.Undef, &ipldurlerr.InvalidPatchOp{Reason: "empty path"}
	}

	node, err := sys.GetNode(ctx, rootCID)
	if err != nil {
		return cid.Undef, err
	}

	var root lens.Lens = lens.NewPlain(node)
	if !rootParams.Empty() {
		root, err = lens.Apply(ctx, sys, sys.SchemaCache, node, rootParams)
		if err != nil {
			return cid.Undef, err
		}
	}

	newRoot, err := rebuild(ctx, sys, root, steps, mutate)
	if err != nil {
		return cid.Undef, err
	}

	substrate, err := newRoot.Substrate()
	if err != nil {
		return cid.Undef, err
	}
	enc, err := ipldcid.EncodingOf(rootCID)
	if err != nil {
		return cid.Undef, err
	}
	return sys.SaveNode(ctx, substrate, enc)
}

// rebuild recurses through steps, applying mutate at the leaf and
// reassembling each ancestor immutably on the way back up.
func rebuild(ctx context.Context, sys *system.System, cur lens.Lens, steps []segmentStep, mutate leafMutator) (lens.Lens, error) {
	seg := steps[0]
	rest := steps[1:]

	if len(rest) == 0 {
		newNode, err := mutate(cur.Assembler(), cur.Node(), seg.name)
		if err != nil {
			return nil, err
		}
		return cur.Rebuild(newNode)
	}

	lr, err := cur.Lookup(seg.name)
	if err != nil {
		return nil, err
	}

	var childLens lens.Lens
	var childWasLink bool
	var childLinkCID cid.Cid

	if lr.IsLink() {
		childWasLink = true
		childLinkCID = lr.Link
		childNode, err := sys.GetNode(ctx, lr.Link)
		if err != nil {
			return nil, err
		}
		if lr.Tag != nil {
			childLens, err = lens.ApplyTag(ctx, sys, sys.SchemaCache, lr.Tag, childNode)
			if err != nil {
				return nil, err
			}
		} else {
			childLens = lens.NewPlain(childNode)
		}
	} else {
		childLens = lens.NewPlain(lr.Node)
	}

	if seg.lensed && !seg.params.Parameters.Empty() {
		var err error
		childLens, err = lens.Apply(ctx, sys, sys.SchemaCache, childLens.Node(), seg.params.Parameters)
		if err != nil {
			return nil, err
		}
	}

	newChildLens, err := rebuild(ctx, sys, childLens, rest, mutate)
	if err != nil {
		return nil, err
	}

	substrate, err := newChildLens.Substrate()
	if err != nil {
		return nil, err
	}

	var replacement datamodel.Node
	if childWasLink {
		enc, err := ipldcid.EncodingOf(childLinkCID)
		if err != nil {
			return nil, err
		}
		newChildCID, err := sys.SaveNode(ctx, substrate, enc)
		if err != nil {
			return nil, err
		}
		replacement = linkNode(newChildCID)
	} else {
		replacement = substrate
	}

	newParentNode, err := replaceChildInContainer(cur.Assembler(), cur.Node(), seg.name, replacement)
	if err != nil {
		return nil, err
	}
	return cur.Rebuild(newParentNode)
}

// replaceChildInContainer rebuilds parent (a map or list, already known
// to contain name/index from the preceding Lookup) with that single
// child replaced by val.
func replaceChildInContainer(proto datamodel.NodePrototype, parent datamodel.Node, name string, val datamodel.Node) (datamodel.Node, error) {
	switch parent.Kind() {
	case datamodel.Kind_Map:
		return nodeutil.SetMapKey(proto, parent, name, val)
	case datamodel.Kind_List:
		idx, err := strconv.Atoi(name)
		if err != nil {
			return nil, &ipldurlerr.PathNotFound{Segment: name}
		}
		return nodeutil.ReplaceListAt(proto, parent, idx, val)
	default:
		return nil, &ipldurlerr.PathNotFound{Segment: name}
	}
}

// readValue resolves path (the URL's own lensed segments joined with
// path's plain components) against rootCID, never following a terminal
// link: copy and move capture the link itself, not its target. The
// result is the substrate (representation) form, ready to be embedded
// verbatim by a subsequent add.
func readValue(ctx context.Context, sys *system.System, url *urlmodel.URL, rootCID cid.Cid, path string) (datamodel.Node, error) {
	steps, err := joinedSteps(url, path)
	if err != nil {
		return nil, err
	}

	node, err := sys.GetNode(ctx, rootCID)
	if err != nil {
		return nil, err
	}

	var cur lens.Lens = lens.NewPlain(node)
	if !url.Parameters().Empty() {
		cur, err = lens.Apply(ctx, sys, sys.SchemaCache, node, url.Parameters())
		if err != nil {
			return nil, err
		}
	}

	var lastLink cid.Cid
	lastLinkSet := false

	for _, seg := range steps {
		lr, err := cur.Lookup(seg.name)
		if err != nil {
			return nil, err
		}

		var next datamodel.Node
		if lr.IsLink() {
			lastLink = lr.Link
			lastLinkSet = true
			next, err = sys.GetNode(ctx, lr.Link)
			if err != nil {
				return nil, err
			}
			if lr.Tag != nil {
				cur, err = lens.ApplyTag(ctx, sys, sys.SchemaCache, lr.Tag, next)
				if err != nil {
					return nil, err
				}
				next = cur.Node()
			} else {
				cur = lens.NewPlain(next)
			}
		} else {
			lastLinkSet = false
			next = lr.Node
			cur = lens.NewPlain(next)
		}

		if seg.lensed && !seg.params.Parameters.Empty() {
			cur, err = lens.Apply(ctx, sys, sys.SchemaCache, next, seg.params.Parameters)
			if err != nil {
				return nil, err
			}
		}
	}

	if lastLinkSet {
		return linkNode(lastLink), nil
	}
	return cur.Substrate()
}

// linkNode wraps c as a Link-kind datamodel.Node.
func linkNode(c cid.Cid) datamodel.Node {
	nb := basicnode.Prototype.Link.NewBuilder()
	// basicnode's link builder never errors on a well-formed cidlink.Link.
	_ = nb.AssignLink(cidlink.Link{Cid: c})
	return nb.Build()
}
