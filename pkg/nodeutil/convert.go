// Package nodeutil adapts plain Go values to and from datamodel.Node,
// and provides the order-preserving map/list rebuilders the patcher's
// copy-on-write walk needs. Map key order is load-bearing: two nodes
// with the same keys in different orders serialize to different blocks
// and therefore different CIDs, so every rebuild here preserves
// insertion order.
package nodeutil

import (
	"fmt"
	"math"
	"reflect"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/datamodel"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/ipld/go-ipld-prime/node/basicnode"
)

// Entry is one key/value pair of an order-preserving map literal.
type Entry struct {
	Key   string
	Value any
}

// OrderedMap is a map literal that remembers insertion order, the input
// shape AnyToNode accepts wherever a patch `value` needs to express map
// data (plain map[string]any loses order the moment it's built).
type OrderedMap []Entry

// AnyToNode converts a plain Go value (or an already-built datamodel.Node,
// passed through unchanged) into a datamodel.Node using basicnode
// builders.
func AnyToNode(v any) (datamodel.Node, error) {
	if n, ok := v.(datamodel.Node); ok {
		return n, nil
	}
	nb := basicnode.Prototype.Any.NewBuilder()
	if err := assignAny(nb, v); err != nil {
		return nil, err
	}
	return nb.Build(), nil
}

func assignAny(ass datamodel.NodeAssembler, v any) error {
	if v == nil {
		return ass.AssignNull()
	}
	// Already-built nodes are usually pointers whose methods have pointer
	// receivers, so they must be recognized before the dereference below.
	if n, ok := v.(datamodel.Node); ok {
		return ass.AssignNode(n)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ass.AssignNull()
		}
		rv = rv.Elem()
		v = rv.Interface()
	}

	switch t := v.(type) {
	case string:
		return ass.AssignString(t)
	case bool:
		return ass.AssignBool(t)
	case int:
		return ass.AssignInt(int64(t))
	case int8:
		return ass.AssignInt(int64(t))
	case int16:
		return ass.AssignInt(int64(t))
	case int32:
		return ass.AssignInt(int64(t))
	case int64:
		return ass.AssignInt(t)
	case uint:
		if uint64(t) > math.MaxInt64 {
			return fmt.Errorf("unsigned int overflows int64: %d", t)
		}
		return ass.AssignInt(int64(t))
	case uint8:
		return ass.AssignInt(int64(t))
	case uint16:
		return ass.AssignInt(int64(t))
	case uint32:
		return ass.AssignInt(int64(t))
	case uint64:
		if t > math.MaxInt64 {
			return fmt.Errorf("uint64 overflows int64: %d", t)
		}
		return ass.AssignInt(int64(t))
	case float32:
		f := float64(t)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite float not allowed")
		}
		return ass.AssignFloat(f)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Errorf("non-finite float not allowed")
		}
		return ass.AssignFloat(t)
	case []byte:
		return ass.AssignBytes(t)
	case datamodel.Node:
		return ass.AssignNode(t)
	case datamodel.Link:
		return ass.AssignLink(t)
	case cid.Cid:
		return ass.AssignLink(cidlink.Link{Cid: t})
	case OrderedMap:
		n, err := BuildOrderedMap(t)
		if err != nil {
			return err
		}
		return ass.AssignNode(n)
	case []any:
		n, err := BuildList(t...)
		if err != nil {
			return err
		}
		return ass.AssignNode(n)
	case map[string]any:
		// Iteration order over a Go map is undefined; callers that care
		// about key order must use OrderedMap instead.
		n, err := BuildOrderedMap(mapToOrdered(t))
		if err != nil {
			return err
		}
		return ass.AssignNode(n)
	}

	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		lb := basicnode.Prototype.List.NewBuilder()
		la, err := lb.BeginList(int64(rv.Len()))
		if err != nil {
			return err
		}
		for i := 0; i < rv.Len(); i++ {
			if err := assignAny(la.AssembleValue(), rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		if err := la.Finish(); err != nil {
			return err
		}
		return ass.AssignNode(lb.Build())
	}

	return fmt.Errorf("nodeutil: unsupported type %T", v)
}

func mapToOrdered(m map[string]any) OrderedMap {
	out := make(OrderedMap, 0, len(m))
	for k, v := range m {
		out = append(out, Entry{Key: k, Value: v})
	}
	return out
}

// BuildOrderedMap assembles a map node preserving kv's entry order.
func BuildOrderedMap(kv OrderedMap) (datamodel.Node, error) {
	mb := basicnode.Prototype.Map.NewBuilder()
	ma, err := mb.BeginMap(int64(len(kv)))
	if err != nil {
		return nil, err
	}
	for _, e := range kv {
		if err := ma.AssembleKey().AssignString(e.Key); err != nil {
			return nil, err
		}
		if err := assignAny(ma.AssembleValue(), e.Value); err != nil {
			return nil, err
		}
	}
	if err := ma.Finish(); err != nil {
		return nil, err
	}
	return mb.Build(), nil
}

// BuildList assembles a list node from items in order.
func BuildList(items ...any) (datamodel.Node, error) {
	lb := basicnode.Prototype.List.NewBuilder()
	la, err := lb.BeginList(int64(len(items)))
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := assignAny(la.AssembleValue(), it); err != nil {
			return nil, err
		}
	}
	if err := la.Finish(); err != nil {
		return nil, err
	}
	return lb.Build(), nil
}

// NodeToAny converts a datamodel.Node into plain Go values (maps preserve
// the node's own iteration order by returning OrderedMap rather than
// map[string]any).
func NodeToAny(n datamodel.Node) (any, error) {
	switch n.Kind() {
	case datamodel.Kind_Null:
		return nil, nil
	case datamodel.Kind_Bool:
		return n.AsBool()
	case datamodel.Kind_Int:
		return n.AsInt()
	case datamodel.Kind_Float:
		return n.AsFloat()
	case datamodel.Kind_String:
		return n.AsString()
	case datamodel.Kind_Bytes:
		return n.AsBytes()
	case datamodel.Kind_Link:
		lk, err := n.AsLink()
		if err != nil {
			return nil, err
		}
		if cl, ok := lk.(cidlink.Link); ok {
			return cl.Cid, nil
		}
		return nil, fmt.Errorf("unsupported link type %T", lk)
	case datamodel.Kind_List:
		itr := n.ListIterator()
		var out []any
		for !itr.Done() {
			_, v, err := itr.Next()
			if err != nil {
				return nil, err
			}
			av, err := NodeToAny(v)
			if err != nil {
				return nil, err
			}
			out = append(out, av)
		}
		return out, nil
	case datamodel.Kind_Map:
		itr := n.MapIterator()
		var out OrderedMap
		for !itr.Done() {
			k, v, err := itr.Next()
			if err != nil {
				return nil, err
			}
			ks, err := k.AsString()
			if err != nil {
				return nil, fmt.Errorf("map key is not string: %w", err)
			}
			av, err := NodeToAny(v)
			if err != nil {
				return nil, err
			}
			out = append(out, Entry{Key: ks, Value: av})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown kind: %v", n.Kind())
	}
}

// Printable renders a node compactly for diagnostics (SchemaMismatch
// errors need a human-readable form of the offending node).
func Printable(n datamodel.Node) string {
	v, err := NodeToAny(n)
	if err != nil {
		return fmt.Sprintf("<unprintable: %v>", err)
	}
	return fmt.Sprintf("%v", v)
}
