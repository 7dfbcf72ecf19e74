package patch

import (
	"github.com/ipld/go-ipld-prime/datamodel"

	"github.com/ipldurl/resolve/pkg/ipldurlerr"
	"github.com/ipldurl/resolve/pkg/nodeutil"
)

// mutateAdd implements add: insert-and-shift (or append on "-") for
// lists, set-key for maps.
func mutateAdd(proto datamodel.NodePrototype, parent datamodel.Node, leaf string, val datamodel.Node) (datamodel.Node, error) {
	switch parent.Kind() {
	case datamodel.Kind_Map:
		return nodeutil.SetMapKey(proto, parent, leaf, val)
	case datamodel.Kind_List:
		idx, isAppend, err := nodeutil.ParseListIndex(leaf, int(parent.Length()))
		if err != nil {
			return nil, err
		}
		if isAppend {
			idx = int(parent.Length())
		}
		return nodeutil.InsertListAt(proto, parent, idx, val)
	default:
		return nil, &ipldurlerr.PathNotFound{Segment: leaf}
	}
}

// mutateReplace implements replace: list-index replacement or map
// set-key, but the key/index must already exist.
func mutateReplace(proto datamodel.NodePrototype, parent datamodel.Node, leaf string, val datamodel.Node) (datamodel.Node, error) {
	switch parent.Kind() {
	case datamodel.Kind_Map:
		if _, err := parent.LookupByString(leaf); err != nil {
			return nil, &ipldurlerr.MissingKey{Key: leaf}
		}
		return nodeutil.SetMapKey(proto, parent, leaf, val)
	case datamodel.Kind_List:
		idx, _, err := nodeutil.ParseListIndex(leaf, int(parent.Length()))
		if err != nil {
			return nil, err
		}
		return nodeutil.ReplaceListAt(proto, parent, idx, val)
	default:
		return nil, &ipldurlerr.PathNotFound{Segment: leaf}
	}
}

// mutateRemove implements remove: list-index removal or map key
// deletion, both failing MissingKey when the target is absent.
func mutateRemove(proto datamodel.NodePrototype, parent datamodel.Node, leaf string) (datamodel.Node, error) {
	switch parent.Kind() {
	case datamodel.Kind_Map:
		return nodeutil.DeleteMapKey(proto, parent, leaf)
	case datamodel.Kind_List:
		idx, _, err := nodeutil.ParseListIndex(leaf, int(parent.Length()))
		if err != nil {
			return nil, err
		}
		return nodeutil.RemoveListAt(proto, parent, idx)
	default:
		return nil, &ipldurlerr.PathNotFound{Segment: leaf}
	}
}
