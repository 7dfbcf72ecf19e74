// Package patch implements a copy-on-write DAG patcher: an ordered set
// of JSON-Patch–shaped operations applied against a resolved path,
// rebuilding the chain of modified nodes bottom-up and re-saving each
// under its original codec. The walk mirrors the resolver's
// link-following descent, turned from a read-only walk into a
// rebuild-as-you-return one over immutable nodes.
package patch

import (
	"context"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/datamodel"

	"github.com/ipldurl/resolve/pkg/ipldcid"
	"github.com/ipldurl/resolve/pkg/ipldurlerr"
	"github.com/ipldurl/resolve/pkg/nodeutil"
	"github.com/ipldurl/resolve/pkg/system"
	"github.com/ipldurl/resolve/pkg/urlmodel"
)

// Op enumerates the recognized patch operation kinds.
type Op string

const (
	OpAdd     Op = "add"
	OpRemove  Op = "remove"
	OpReplace Op = "replace"
	OpCopy    Op = "copy"
	OpMove    Op = "move"
	OpTest    Op = "test"
)

// Operation is one entry of a patch set: `{op, path, value?, from?}`.
// Path and From are plain "/a/b/c" strings with no segment parameter
// syntax (only the URL's own leading segments may carry lenses); Value
// is anything nodeutil.AnyToNode accepts.
type Operation struct {
	Op    Op
	Path  string
	Value any
	From  string
}

func validOp(op Op) bool {
	switch op {
	case OpAdd, OpRemove, OpReplace, OpCopy, OpMove, OpTest:
		return true
	default:
		return false
	}
}

// segmentStep is one component of a fully-joined walk path: the URL's
// own lensed prefix segments, followed by the operation's plain path
// components.
type segmentStep struct {
	name   string
	params urlmodel.Segment // reused only for its Parameters; Name ignored
	lensed bool
}

func stepsFromURL(url *urlmodel.URL) []segmentStep {
	segs := url.Segments()
	steps := make([]segmentStep, len(segs))
	for i, s := range segs {
		steps[i] = segmentStep{name: s.Name, params: s, lensed: true}
	}
	return steps
}

func stepsFromPath(path string) ([]segmentStep, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, "/")
	steps := make([]segmentStep, len(parts))
	for i, p := range parts {
		steps[i] = segmentStep{name: p}
	}
	return steps, nil
}

func joinedSteps(url *urlmodel.URL, path string) ([]segmentStep, error) {
	tail, err := stepsFromPath(path)
	if err != nil {
		return nil, err
	}
	return append(stepsFromURL(url), tail...), nil
}

// Apply runs patchset against url's root CID in sys and returns a new
// URL equal to url except the authority CID is replaced by the final
// root CID. Operations apply in order, each observing the effects of
// the previous one.
func Apply(ctx context.Context, sys *system.System, url *urlmodel.URL, patchset []Operation) (*urlmodel.URL, error) {
	rootCID := url.CID()

	for _, op := range patchset {
		if !validOp(op.Op) {
			return nil, &ipldurlerr.InvalidPatchOp{Reason: "unknown op " + string(op.Op)}
		}

		var err error
		switch op.Op {
		case OpAdd:
			rootCID, err = applyAdd(ctx, sys, url, rootCID, op.Path, op.Value)
		case OpRemove:
			rootCID, err = applyRemove(ctx, sys, url, rootCID, op.Path)
		case OpReplace:
			rootCID, err = applyReplace(ctx, sys, url, rootCID, op.Path, op.Value)
		case OpCopy:
			rootCID, err = applyCopy(ctx, sys, url, rootCID, op.From, op.Path)
		case OpMove:
			rootCID, err = applyMove(ctx, sys, url, rootCID, op.From, op.Path)
		case OpTest:
			err = applyTest(ctx, sys, url, rootCID, op.Path, op.Value)
		}
		if err != nil {
			return nil, err
		}
	}

	out := url.Clone()
	out.SetCID(ipldcid.ToCIDv1(rootCID))
	return out, nil
}

func applyAdd(ctx context.Context, sys *system.System, url *urlmodel.URL, rootCID cid.Cid, path string, value any) (cid.Cid, error) {
	steps, err := joinedSteps(url, path)
	if err != nil {
		return cid.Undef, err
	}
	val, err := nodeutil.AnyToNode(value)
	if err != nil {
		return cid.Undef, err
	}
	return walkAndMutate(ctx, sys, rootCID, url.Parameters(), steps, func(proto datamodel.NodePrototype, parent datamodel.Node, leaf string) (datamodel.Node, error) {
		return mutateAdd(proto, parent, leaf, val)
	})
}

func applyReplace(ctx context.Context, sys *system.System, url *urlmodel.URL, rootCID cid.Cid, path string, value any) (cid.Cid, error) {
	steps, err := joinedSteps(url, path)
	if err != nil {
		return cid.Undef, err
	}
	val, err := nodeutil.AnyToNode(value)
	if err != nil {
		return cid.Undef, err
	}
	return walkAndMutate(ctx, sys, rootCID, url.Parameters(), steps, func(proto datamodel.NodePrototype, parent datamodel.Node, leaf string) (datamodel.Node, error) {
		return mutateReplace(proto, parent, leaf, val)
	})
}

func applyRemove(ctx context.Context, sys *system.System, url *urlmodel.URL, rootCID cid.Cid, path string) (cid.Cid, error) {
	steps, err := joinedSteps(url, path)
	if err != nil {
		return cid.Undef, err
	}
	return walkAndMutate(ctx, sys, rootCID, url.Parameters(), steps, mutateRemove)
}

func applyCopy(ctx context.Context, sys *system.System, url *urlmodel.URL, rootCID cid.Cid, from, path string) (cid.Cid, error) {
	val, err := readValue(ctx, sys, url, rootCID, from)
	if err != nil {
		return cid.Undef, err
	}
	return applyAdd(ctx, sys, url, rootCID, path, val)
}

func applyMove(ctx context.Context, sys *system.System, url *urlmodel.URL, rootCID cid.Cid, from, path string) (cid.Cid, error) {
	// The from-path resolves before its corresponding remove so the
	// value is captured first.
	val, err := readValue(ctx, sys, url, rootCID, from)
	if err != nil {
		return cid.Undef, err
	}
	afterRemove, err := applyRemove(ctx, sys, url, rootCID, from)
	if err != nil {
		return cid.Undef, err
	}
	return applyAdd(ctx, sys, url, afterRemove, path, val)
}

func applyTest(ctx context.Context, sys *system.System, url *urlmodel.URL, rootCID cid.Cid, path string, expected any) error {
	val, err := readValue(ctx, sys, url, rootCID, path)
	if err != nil {
		return err
	}
	expNode, err := nodeutil.AnyToNode(expected)
	if err != nil {
		return err
	}
	if !shallowEqual(val, expNode) {
		return &ipldurlerr.TestFailed{
			Path:     path,
			Expected: nodeutil.Printable(expNode),
			Actual:   nodeutil.Printable(val),
		}
	}
	return nil
}

// shallowEqual compares two nodes without deep structural equality
// across links: CIDs compare by identity, never by dereferencing and
// comparing linked content.
func shallowEqual(a, b datamodel.Node) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	av, aerr := nodeutil.NodeToAny(a)
	bv, berr := nodeutil.NodeToAny(b)
	if aerr != nil || berr != nil {
		return false
	}
	return fmt.Sprintf("%#v", av) == fmt.Sprintf("%#v", bv)
}
