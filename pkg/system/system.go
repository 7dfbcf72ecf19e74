// Package system wires together the store, schema cache, and ADL
// registry into the single handle threaded through resolve and patch,
// so nested resolution (an ADL function calling back into GetNode, for
// instance) has everything it needs without reaching for process
// globals.
package system

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/datamodel"
	"github.com/multiformats/go-multibase"

	"github.com/ipldurl/resolve/pkg/blockstore"
	"github.com/ipldurl/resolve/pkg/ipldcid"
	"github.com/ipldurl/resolve/pkg/lens"
)

// System bundles the node store, the schema cache, and the ADL registry
// behind the lens.System interface the pipeline depends on.
type System struct {
	Store       blockstore.Store
	SchemaCache *lens.SchemaCache
	Registry    *lens.Registry
}

// New builds a System over store with an empty ADL registry and schema
// cache.
func New(store blockstore.Store) *System {
	return &System{
		Store:       store,
		SchemaCache: lens.NewSchemaCache(),
		Registry:    lens.NewRegistry(),
	}
}

// GetNode satisfies lens.System.
func (s *System) GetNode(ctx context.Context, c cid.Cid) (datamodel.Node, error) {
	return s.Store.GetNode(ctx, c)
}

// SaveNode satisfies the patcher's store dependency.
func (s *System) SaveNode(ctx context.Context, n datamodel.Node, enc ipldcid.Encoding) (cid.Cid, error) {
	return s.Store.SaveNode(ctx, n, enc)
}

// ADLRegistry satisfies lens.System.
func (s *System) ADLRegistry() *lens.Registry {
	return s.Registry
}

// CIDBases returns the multibase encodings the system recognizes for
// root CIDs: base32 and base36. urlmodel.URL.String always writes the
// root CID in base32; a base36 input is not written back in base36.
func (s *System) CIDBases() []multibase.Encoding {
	return []multibase.Encoding{multibase.Base32, multibase.Base36}
}
