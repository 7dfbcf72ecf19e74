// Package ipldcid holds the codec table and CIDv1 helpers shared across
// the URL model, resolver and patcher.
package ipldcid

import (
	"github.com/ipfs/go-cid"
	mc "github.com/multiformats/go-multicodec"
	mh "github.com/multiformats/go-multihash"

	"github.com/ipldurl/resolve/pkg/ipldurlerr"
)

// Encoding names one of the two codecs the core knows how to save and
// interpret.
type Encoding string

const (
	DagCBOR Encoding = "dag-cbor"
	DagJSON Encoding = "dag-json"
)

// Code returns the multicodec code for this encoding.
func (e Encoding) Code() uint64 {
	switch e {
	case DagCBOR:
		return uint64(mc.DagCbor)
	case DagJSON:
		return uint64(mc.DagJson)
	default:
		return 0
	}
}

// EncodingFromCode maps a multicodec code to its encoding: 0x71 ->
// dag-cbor, 0x0129 -> dag-json, anything else is an UnsupportedCodec.
func EncodingFromCode(code uint64) (Encoding, error) {
	switch code {
	case uint64(mc.DagCbor):
		return DagCBOR, nil
	case uint64(mc.DagJson):
		return DagJSON, nil
	default:
		return "", &ipldurlerr.UnsupportedCodec{Code: code}
	}
}

// EncodingOf returns the codec of the block a CID names.
func EncodingOf(c cid.Cid) (Encoding, error) {
	return EncodingFromCode(c.Prefix().Codec)
}

// NewV1Prefix builds the CIDv1 prefix used when minting a new block
// under the given encoding, always sha2-256.
func NewV1Prefix(enc Encoding) cid.Prefix {
	return cid.Prefix{
		Version:  1,
		Codec:    enc.Code(),
		MhType:   mh.SHA2_256,
		MhLength: -1,
	}
}

// ToCIDv1 canonicalizes any CID to CIDv1. CIDv0 is always
// dag-pb/sha2-256; a v0 CID keeps its hash but is re-tagged with the v1
// multicodec wrapper.
func ToCIDv1(c cid.Cid) cid.Cid {
	if c.Version() == 1 {
		return c
	}
	return cid.NewCidV1(c.Type(), c.Hash())
}
