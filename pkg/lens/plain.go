package lens

import (
	"github.com/ipld/go-ipld-prime/datamodel"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/ipld/go-ipld-prime/node/basicnode"

	"github.com/ipldurl/resolve/pkg/ipldurlerr"
	"github.com/ipldurl/resolve/pkg/nodeutil"
)

// PlainLens is the identity lens: no schema, no ADL. Its substrate is
// the node itself.
type PlainLens struct {
	node datamodel.Node
}

// NewPlain wraps n in a no-op lens.
func NewPlain(n datamodel.Node) *PlainLens {
	return &PlainLens{node: n}
}

func (l *PlainLens) Node() datamodel.Node {
	return l.node
}

func (l *PlainLens) Assembler() datamodel.NodePrototype {
	return basicnode.Prototype.Any
}

func (l *PlainLens) Substrate() (datamodel.Node, error) {
	return l.node, nil
}

func (l *PlainLens) Rebuild(newSubstrate datamodel.Node) (Lens, error) {
	return NewPlain(newSubstrate), nil
}

// Lookup navigates to name, trying a string key first (maps) and
// falling back to a decimal index for lists.
func (l *PlainLens) Lookup(name string) (LookupResult, error) {
	child, err := l.node.LookupByString(name)
	if err != nil {
		child, err = nodeutil.LookupListIndex(l.node, name)
		if err != nil {
			return LookupResult{}, &ipldurlerr.PathNotFound{Segment: name}
		}
	}
	if child.Kind() == datamodel.Kind_Link {
		lk, err := child.AsLink()
		if err != nil {
			return LookupResult{}, err
		}
		cl, ok := lk.(cidlink.Link)
		if !ok {
			return LookupResult{}, &ipldurlerr.BadURL{Reason: "unsupported link implementation"}
		}
		return LookupResult{Link: cl.Cid}, nil
	}
	return LookupResult{Node: child}, nil
}

var _ Lens = (*PlainLens)(nil)
