package nodeutil

import (
	"strconv"

	"github.com/ipld/go-ipld-prime/datamodel"

	"github.com/ipldurl/resolve/pkg/ipldurlerr"
)

// ParseListIndex converts a JSON-Pointer-style list segment ("-" meaning
// append, or a decimal index) into a position in a list of the given
// length. append is true when seg was "-".
func ParseListIndex(seg string, length int) (idx int, append bool, err error) {
	if seg == "-" {
		return length, true, nil
	}
	n, convErr := strconv.Atoi(seg)
	if convErr != nil {
		return 0, false, &ipldurlerr.PathNotFound{Segment: seg}
	}
	return n, false, nil
}

// SetMapKey returns a new map node equal to n but with key set to val,
// appending the key at the end if it wasn't already present. proto
// selects the assembler to build with (the Lens in effect supplies it
// via Assembler), so the same routine serves both the lens-free and
// schema-typed patch paths.
func SetMapKey(proto datamodel.NodePrototype, n datamodel.Node, key string, val datamodel.Node) (datamodel.Node, error) {
	existed, err := hasMapKey(n, key)
	if err != nil {
		return nil, err
	}
	size := n.Length()
	if !existed {
		size++
	}

	nb := proto.NewBuilder()
	ma, err := nb.BeginMap(size)
	if err != nil {
		return nil, err
	}
	it := n.MapIterator()
	for !it.Done() {
		k, v, err := it.Next()
		if err != nil {
			return nil, err
		}
		ks, err := k.AsString()
		if err != nil {
			return nil, err
		}
		if err := ma.AssembleKey().AssignString(ks); err != nil {
			return nil, err
		}
		if ks == key {
			if err := ma.AssembleValue().AssignNode(val); err != nil {
				return nil, err
			}
		} else {
			if err := ma.AssembleValue().AssignNode(v); err != nil {
				return nil, err
			}
		}
	}
	if !existed {
		if err := ma.AssembleKey().AssignString(key); err != nil {
			return nil, err
		}
		if err := ma.AssembleValue().AssignNode(val); err != nil {
			return nil, err
		}
	}
	if err := ma.Finish(); err != nil {
		return nil, err
	}
	return nb.Build(), nil
}

// DeleteMapKey returns a new map node equal to n with key removed. It
// fails with MissingKey if key is absent.
func DeleteMapKey(proto datamodel.NodePrototype, n datamodel.Node, key string) (datamodel.Node, error) {
	existed, err := hasMapKey(n, key)
	if err != nil {
		return nil, err
	}
	if !existed {
		return nil, &ipldurlerr.MissingKey{Key: key}
	}

	nb := proto.NewBuilder()
	ma, err := nb.BeginMap(n.Length() - 1)
	if err != nil {
		return nil, err
	}
	it := n.MapIterator()
	for !it.Done() {
		k, v, err := it.Next()
		if err != nil {
			return nil, err
		}
		ks, err := k.AsString()
		if err != nil {
			return nil, err
		}
		if ks == key {
			continue
		}
		if err := ma.AssembleKey().AssignString(ks); err != nil {
			return nil, err
		}
		if err := ma.AssembleValue().AssignNode(v); err != nil {
			return nil, err
		}
	}
	if err := ma.Finish(); err != nil {
		return nil, err
	}
	return nb.Build(), nil
}

func hasMapKey(n datamodel.Node, key string) (bool, error) {
	it := n.MapIterator()
	for !it.Done() {
		k, _, err := it.Next()
		if err != nil {
			return false, err
		}
		ks, err := k.AsString()
		if err != nil {
			return false, err
		}
		if ks == key {
			return true, nil
		}
	}
	return false, nil
}

// InsertListAt returns a new list node with val inserted at idx (shifting
// later elements right); idx == list length means append ("-" in the
// patch path grammar).
func InsertListAt(proto datamodel.NodePrototype, n datamodel.Node, idx int, val datamodel.Node) (datamodel.Node, error) {
	length := int(n.Length())
	if idx < 0 || idx > length {
		return nil, &ipldurlerr.PathNotFound{Segment: strconv.Itoa(idx)}
	}

	nb := proto.NewBuilder()
	la, err := nb.BeginList(int64(length) + 1)
	if err != nil {
		return nil, err
	}
	it := n.ListIterator()
	i := 0
	for !it.Done() {
		_, v, err := it.Next()
		if err != nil {
			return nil, err
		}
		if i == idx {
			if err := la.AssembleValue().AssignNode(val); err != nil {
				return nil, err
			}
		}
		if err := la.AssembleValue().AssignNode(v); err != nil {
			return nil, err
		}
		i++
	}
	if idx == length {
		if err := la.AssembleValue().AssignNode(val); err != nil {
			return nil, err
		}
	}
	if err := la.Finish(); err != nil {
		return nil, err
	}
	return nb.Build(), nil
}

// ReplaceListAt returns a new list node with the element at idx replaced
// by val. idx must already be in range.
func ReplaceListAt(proto datamodel.NodePrototype, n datamodel.Node, idx int, val datamodel.Node) (datamodel.Node, error) {
	length := int(n.Length())
	if idx < 0 || idx >= length {
		return nil, &ipldurlerr.MissingKey{Key: strconv.Itoa(idx)}
	}

	nb := proto.NewBuilder()
	la, err := nb.BeginList(int64(length))
	if err != nil {
		return nil, err
	}
	it := n.ListIterator()
	i := 0
	for !it.Done() {
		_, v, err := it.Next()
		if err != nil {
			return nil, err
		}
		if i == idx {
			if err := la.AssembleValue().AssignNode(val); err != nil {
				return nil, err
			}
		} else {
			if err := la.AssembleValue().AssignNode(v); err != nil {
				return nil, err
			}
		}
		i++
	}
	if err := la.Finish(); err != nil {
		return nil, err
	}
	return nb.Build(), nil
}

// RemoveListAt returns a new list node with the element at idx removed.
func RemoveListAt(proto datamodel.NodePrototype, n datamodel.Node, idx int) (datamodel.Node, error) {
	length := int(n.Length())
	if idx < 0 || idx >= length {
		return nil, &ipldurlerr.MissingKey{Key: strconv.Itoa(idx)}
	}

	nb := proto.NewBuilder()
	la, err := nb.BeginList(int64(length) - 1)
	if err != nil {
		return nil, err
	}
	it := n.ListIterator()
	i := 0
	for !it.Done() {
		_, v, err := it.Next()
		if err != nil {
			return nil, err
		}
		if i != idx {
			if err := la.AssembleValue().AssignNode(v); err != nil {
				return nil, err
			}
		}
		i++
	}
	if err := la.Finish(); err != nil {
		return nil, err
	}
	return nb.Build(), nil
}

// LookupListIndex returns the element of n at the decimal index seg,
// the fallback used when LookupByString fails on a list node.
func LookupListIndex(n datamodel.Node, seg string) (datamodel.Node, error) {
	idx, err := strconv.Atoi(seg)
	if err != nil {
		return nil, &ipldurlerr.PathNotFound{Segment: seg}
	}
	v, err := n.LookupByIndex(int64(idx))
	if err != nil {
		return nil, &ipldurlerr.PathNotFound{Segment: seg}
	}
	return v, nil
}
