// Package lens applies schema typing and/or a named ADL to a node, and
// recovers the substrate (representation form) of whatever view comes
// out. A lens is reversible: walking and patching both happen against
// the typed view, while anything headed back to the store goes through
// Substrate first.
package lens

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/datamodel"

	"github.com/ipldurl/resolve/pkg/params"
)

// SchemaTag marks a link as requiring a specific schema type be
// reapplied once the resolver loads the node it points to. Links typed
// "&T" stay links until followed; the tag is how the expected type
// survives the hop.
type SchemaTag struct {
	SchemaCID cid.Cid
	TypeName  string
}

// LookupResult is what a Lens.Lookup call returns for a named child: a
// materialized node, or a link (possibly tagged for re-lensing once
// followed).
type LookupResult struct {
	Node datamodel.Node
	Link cid.Cid
	Tag  *SchemaTag
}

// IsLink reports whether the lookup found a link rather than a
// materialized node.
func (r LookupResult) IsLink() bool {
	return r.Link.Defined()
}

// Lens is a reversible view over a node: Lookup navigates named
// children, Substrate recovers the representation form for saving, and
// Rebuild produces a new Lens over a replacement natural-form node (used
// by the patcher after mutating through a view).
type Lens interface {
	// Node returns the underlying node currently presented by this view.
	Node() datamodel.Node
	// Lookup navigates to the named child, resolving link tags per the
	// schema in effect (if any).
	Lookup(name string) (LookupResult, error)
	// Substrate returns the representation-form node that should be
	// passed to save_node.
	Substrate() (datamodel.Node, error)
	// Assembler returns the NodePrototype new sibling/child values
	// should be built with while inside this view, so patch mutations
	// stay consistent with the shape Node() reports.
	Assembler() datamodel.NodePrototype
	// Rebuild returns a new Lens of the same kind wrapping newNatural,
	// a natural-form replacement for Node(). Used by the patcher once
	// it finishes mutating a view's contents; Substrate() is called
	// separately to convert to representation form before saving.
	Rebuild(newNatural datamodel.Node) (Lens, error)
}

// System is the minimal collaborator surface the lens pipeline and ADL
// functions need: node loading plus the ADL registry, so a registered
// ADL can resolve nested structures without process globals.
type System interface {
	GetNode(ctx context.Context, c cid.Cid) (datamodel.Node, error)
	ADLRegistry() *Registry
}

// ADLFunc is a registered programmable ADL: given a node, the
// parameters that selected it, and the system handle (for nested
// resolution), it returns a replacement node or view.
type ADLFunc func(ctx context.Context, node datamodel.Node, p params.Parameters, sys System) (datamodel.Node, error)
