// Package urlmodel parses and serializes ipld:// URLs:
//
//	ipld://<root>[;k=v[;k=v…]][/<segment>[;k=v…]]*[/]
//
// net/url cannot express this grammar directly (its authority and path
// escaping rules don't reserve ';' the way this one does, and it has no
// notion of per-segment parameters), so the parser below is hand-rolled
// on top of the standard percent-encoding primitives.
package urlmodel

import (
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/ipldurl/resolve/pkg/ipldcid"
	"github.com/ipldurl/resolve/pkg/ipldurlerr"
	"github.com/ipldurl/resolve/pkg/params"
)

const scheme = "ipld://"

// Segment is one path component: a decoded name plus whatever lens
// parameters were attached to it via ";k=v" suffixes.
type Segment struct {
	Name       string
	Parameters params.Parameters
}

// URL is the parsed form of an ipld:// reference: a root CID, root-level
// parameters, an ordered path of segments, and whether the path ended in
// a trailing slash.
type URL struct {
	cid          cid.Cid
	parameters   params.Parameters
	segments     []Segment
	resolveFinal bool
}

// Parse decodes raw into a URL. The root CID is canonicalized to CIDv1
// for display.
func Parse(raw string) (*URL, error) {
	if !strings.HasPrefix(raw, scheme) {
		return nil, &ipldurlerr.BadURL{Reason: "missing ipld:// scheme"}
	}
	rest := raw[len(scheme):]

	authority, path, _ := strings.Cut(rest, "/")

	rootCIDStr, rootParamStr, hasParams := strings.Cut(authority, ";")
	if rootCIDStr == "" {
		return nil, &ipldurlerr.BadURL{Reason: "missing root CID"}
	}
	rootCID, err := cid.Decode(rootCIDStr)
	if err != nil {
		return nil, &ipldurlerr.BadURL{Reason: "malformed CID: " + err.Error()}
	}

	var rootParams params.Parameters
	if hasParams {
		rootParams, err = params.Parse(rootParamStr)
		if err != nil {
			return nil, err
		}
	}

	resolveFinal := false
	if strings.HasSuffix(rest, "/") {
		resolveFinal = true
		path = strings.TrimSuffix(path, "/")
	}

	var segments []Segment
	if path != "" {
		for _, chunk := range strings.Split(path, "/") {
			seg, err := parseSegment(chunk)
			if err != nil {
				return nil, err
			}
			segments = append(segments, seg)
		}
	}

	return &URL{
		cid:          ipldcid.ToCIDv1(rootCID),
		parameters:   rootParams,
		segments:     segments,
		resolveFinal: resolveFinal,
	}, nil
}

func parseSegment(chunk string) (Segment, error) {
	nameStr, paramStr, hasParams := strings.Cut(chunk, ";")
	name, err := params.DecodeComponent(nameStr)
	if err != nil {
		return Segment{}, &ipldurlerr.BadURL{Reason: "malformed segment name: " + err.Error()}
	}
	var p params.Parameters
	if hasParams {
		p, err = params.Parse(paramStr)
		if err != nil {
			return Segment{}, err
		}
	}
	return Segment{Name: name, Parameters: p}, nil
}

// CID returns the root CID.
func (u *URL) CID() cid.Cid {
	return u.cid
}

// SetCID replaces the authority's CID, preserving root parameters and
// the path.
func (u *URL) SetCID(c cid.Cid) {
	u.cid = ipldcid.ToCIDv1(c)
}

// Parameters returns the root-level parameters.
func (u *URL) Parameters() params.Parameters {
	return u.parameters
}

// SetParameters replaces root parameters, preserving cid.
func (u *URL) SetParameters(p params.Parameters) {
	u.parameters = p
}

// Segments returns the path segments in order. The returned slice is a
// copy of the URL's own.
func (u *URL) Segments() []Segment {
	out := make([]Segment, len(u.segments))
	copy(out, u.segments)
	return out
}

// SetSegments replaces the entire path. If segs is empty, the serialized
// path is "" and no trailing slash is synthesized.
func (u *URL) SetSegments(segs []Segment) {
	if len(segs) == 0 {
		u.segments = nil
		u.resolveFinal = false
		return
	}
	u.segments = make([]Segment, len(segs))
	copy(u.segments, segs)
}

// ResolveFinal reports whether the URL's trailing slash requests that the
// terminal link (if any) be followed to its node.
func (u *URL) ResolveFinal() bool {
	return u.resolveFinal
}

// SetResolveFinal overrides the trailing-slash flag.
func (u *URL) SetResolveFinal(v bool) {
	u.resolveFinal = v
}

// Clone returns an independent copy of u.
func (u *URL) Clone() *URL {
	out := &URL{
		cid:          u.cid,
		parameters:   u.parameters.Clone(),
		resolveFinal: u.resolveFinal,
	}
	out.segments = make([]Segment, len(u.segments))
	for i, s := range u.segments {
		out.segments[i] = Segment{Name: s.Name, Parameters: s.Parameters.Clone()}
	}
	return out
}

// String serializes u back to ipld:// form; the inverse of Parse.
func (u *URL) String() string {
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString(u.cid.String())
	if !u.parameters.Empty() {
		b.WriteByte(';')
		b.WriteString(u.parameters.String())
	}
	for _, seg := range u.segments {
		b.WriteByte('/')
		b.WriteString(params.EncodeComponent(seg.Name))
		if !seg.Parameters.Empty() {
			b.WriteByte(';')
			b.WriteString(seg.Parameters.String())
		}
	}
	if u.resolveFinal {
		b.WriteByte('/')
	}
	return b.String()
}
