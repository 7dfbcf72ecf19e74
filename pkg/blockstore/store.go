// Package blockstore supplies the node store contract the resolver and
// patcher call through, plus a reference in-memory implementation for
// tests and the demo CLI. The core only ever needs a node-level
// get/save, not the block-level API boxo's Blockstore exposes, so
// Memory collapses a LinkSystem and a boxo blockstore into one type.
package blockstore

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"
	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/ipld/go-ipld-prime/datamodel"
	"github.com/ipld/go-ipld-prime/linking"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/ipld/go-ipld-prime/node/basicnode"
	"github.com/ipld/go-ipld-prime/storage/bsadapter"

	// Blank-imported for their init() registration into the multicodec
	// encoder/decoder registry that cidlink's default LinkSystem consults;
	// the codec table in pkg/ipldcid only maps codes to names, the actual
	// (de)serializers live here.
	_ "github.com/ipld/go-ipld-prime/codec/dagcbor"
	_ "github.com/ipld/go-ipld-prime/codec/dagjson"

	ipldblockstore "github.com/ipfs/boxo/blockstore"

	"github.com/ipldurl/resolve/pkg/ipldcid"
	"github.com/ipldurl/resolve/pkg/ipldurlerr"
)

// Store is the node-level contract the resolver and patcher depend on.
// Embedders that already have a block store wire it behind this
// interface; Memory below is the reference implementation used by tests.
type Store interface {
	GetNode(ctx context.Context, c cid.Cid) (datamodel.Node, error)
	SaveNode(ctx context.Context, n datamodel.Node, enc ipldcid.Encoding) (cid.Cid, error)
}

// Memory is an in-memory Store backed by a boxo blockstore over a
// synchronized map datastore.
type Memory struct {
	bs ipldblockstore.Blockstore
	ls linking.LinkSystem
}

// NewMemory constructs an empty in-memory Store.
func NewMemory() *Memory {
	mds := dssync.MutexWrap(ds.NewMapDatastore())
	bs := ipldblockstore.NewBlockstore(mds)

	ad := &bsadapter.Adapter{Wrapped: bs}
	ls := cidlink.DefaultLinkSystem()
	ls.SetReadStorage(ad)
	ls.SetWriteStorage(ad)

	return &Memory{bs: bs, ls: ls}
}

// GetNode loads and decodes the block named by c using the codec implied
// by its own CID prefix (dag-cbor or dag-json are the only ones the
// LinkSystem's default decoder registrations understand here).
func (m *Memory) GetNode(ctx context.Context, c cid.Cid) (datamodel.Node, error) {
	n, err := m.ls.Load(linking.LinkContext{Ctx: ctx}, cidlink.Link{Cid: c}, basicnode.Prototype.Any)
	if err != nil {
		return nil, &ipldurlerr.StoreError{Op: fmt.Sprintf("get_node(%s)", c), Cause: err}
	}
	return n, nil
}

// SaveNode encodes n under enc and stores it, returning the CID of the
// exact bytes written (the LinkSystem computes it from the CIDv1 prefix
// built from enc).
func (m *Memory) SaveNode(ctx context.Context, n datamodel.Node, enc ipldcid.Encoding) (cid.Cid, error) {
	prefix := ipldcid.NewV1Prefix(enc)
	lnk, err := m.ls.Store(linking.LinkContext{Ctx: ctx}, cidlink.LinkPrototype{Prefix: prefix}, n)
	if err != nil {
		return cid.Undef, &ipldurlerr.StoreError{Op: "save_node", Cause: err}
	}
	cl, ok := lnk.(cidlink.Link)
	if !ok {
		return cid.Undef, &ipldurlerr.StoreError{Op: "save_node", Cause: fmt.Errorf("unsupported link type %T", lnk)}
	}
	return cl.Cid, nil
}

// Has reports whether a block is already present, useful for tests that
// assert a patch operation did or didn't touch a given CID.
func (m *Memory) Has(ctx context.Context, c cid.Cid) (bool, error) {
	return m.bs.Has(ctx, c)
}
