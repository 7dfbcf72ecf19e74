// Package resolver walks a parsed URL across a node store, crossing
// links and applying lenses at each segment: a Lens is threaded through
// every hop, and tagged schemas are re-applied across link boundaries.
package resolver

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/datamodel"

	"github.com/ipldurl/resolve/pkg/lens"
	"github.com/ipldurl/resolve/pkg/system"
	"github.com/ipldurl/resolve/pkg/urlmodel"
)

// Options overrides the resolver's terminal-link decision; a nil
// ResolveFinalCID defers to the URL's own trailing-slash flag.
type Options struct {
	ResolveFinalCID *bool
}

// Result is the terminus of a resolve: either a materialized node, or
// an unfollowed link CID (when the final hop was a link and the caller
// didn't ask to resolve it).
type Result struct {
	Node datamodel.Node
	Link cid.Cid
}

// IsLink reports whether the terminus is an unfollowed link.
func (r Result) IsLink() bool {
	return r.Link.Defined()
}

// Resolve walks url against sys: the root node is loaded and lensed
// under the root parameters, then each segment looks up a child,
// crosses it if it's a link, and applies that segment's own lens.
func Resolve(ctx context.Context, sys *system.System, url *urlmodel.URL, opts Options) (Result, error) {
	node, err := sys.GetNode(ctx, url.CID())
	if err != nil {
		return Result{}, err
	}

	var cur lens.Lens = lens.NewPlain(node)
	if !url.Parameters().Empty() {
		cur, err = lens.Apply(ctx, sys, sys.SchemaCache, node, url.Parameters())
		if err != nil {
			return Result{}, err
		}
	}

	var lastCID cid.Cid
	lastCIDSet := false

	for _, seg := range url.Segments() {
		lr, err := cur.Lookup(seg.Name)
		if err != nil {
			return Result{}, err
		}

		var next datamodel.Node
		if lr.IsLink() {
			lastCID = lr.Link
			lastCIDSet = true

			next, err = sys.GetNode(ctx, lr.Link)
			if err != nil {
				return Result{}, err
			}
			if lr.Tag != nil {
				tagged, err := lens.ApplyTag(ctx, sys, sys.SchemaCache, lr.Tag, next)
				if err != nil {
					return Result{}, err
				}
				cur = tagged
				next = cur.Node()
			}
		} else {
			lastCIDSet = false
			next = lr.Node
		}

		if !seg.Parameters.Empty() {
			cur, err = lens.Apply(ctx, sys, sys.SchemaCache, next, seg.Parameters)
			if err != nil {
				return Result{}, err
			}
		} else if !lr.IsLink() || lr.Tag == nil {
			cur = lens.NewPlain(next)
		}
	}

	resolveFinal := url.ResolveFinal()
	if opts.ResolveFinalCID != nil {
		resolveFinal = *opts.ResolveFinalCID
	}

	if !resolveFinal && lastCIDSet {
		return Result{Link: lastCID}, nil
	}
	return Result{Node: cur.Node()}, nil
}
