package nodeutil

import (
	"fmt"

	"github.com/ipld/go-ipld-prime/datamodel"
)

// CopyInto deep-copies src into dst, dispatching on src.Kind(). Unlike
// AnyToNode, this moves directly between two datamodel.Node/Assembler
// implementations without detouring through plain Go values; a naive
// AssignNode cannot always cross between unrelated implementations
// directly. The lens pipeline's to_typed/to_representation conversions
// rely on it to move values between the store's decoded nodes and the
// natural-form containers they get reshaped into.
func CopyInto(dst datamodel.NodeAssembler, src datamodel.Node) error {
	switch src.Kind() {
	case datamodel.Kind_Null:
		return dst.AssignNull()
	case datamodel.Kind_Bool:
		v, err := src.AsBool()
		if err != nil {
			return err
		}
		return dst.AssignBool(v)
	case datamodel.Kind_Int:
		v, err := src.AsInt()
		if err != nil {
			return err
		}
		return dst.AssignInt(v)
	case datamodel.Kind_Float:
		v, err := src.AsFloat()
		if err != nil {
			return err
		}
		return dst.AssignFloat(v)
	case datamodel.Kind_String:
		v, err := src.AsString()
		if err != nil {
			return err
		}
		return dst.AssignString(v)
	case datamodel.Kind_Bytes:
		v, err := src.AsBytes()
		if err != nil {
			return err
		}
		return dst.AssignBytes(v)
	case datamodel.Kind_Link:
		v, err := src.AsLink()
		if err != nil {
			return err
		}
		return dst.AssignLink(v)
	case datamodel.Kind_Map:
		ma, err := dst.BeginMap(src.Length())
		if err != nil {
			return err
		}
		it := src.MapIterator()
		for !it.Done() {
			k, v, err := it.Next()
			if err != nil {
				return err
			}
			ks, err := k.AsString()
			if err != nil {
				return err
			}
			if err := ma.AssembleKey().AssignString(ks); err != nil {
				return err
			}
			if err := CopyInto(ma.AssembleValue(), v); err != nil {
				return err
			}
		}
		return ma.Finish()
	case datamodel.Kind_List:
		la, err := dst.BeginList(src.Length())
		if err != nil {
			return err
		}
		it := src.ListIterator()
		for !it.Done() {
			_, v, err := it.Next()
			if err != nil {
				return err
			}
			if err := CopyInto(la.AssembleValue(), v); err != nil {
				return err
			}
		}
		return la.Finish()
	default:
		return fmt.Errorf("nodeutil: cannot copy node of kind %v", src.Kind())
	}
}
