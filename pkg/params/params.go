// Package params implements the ordered parameter multimap carried by
// ipld:// URLs: duplicate keys are allowed and iteration order tracks
// insertion order, unlike a plain Go map. It also carries the
// percent-encoding rules layered on top of standard URL escaping, since
// both segment names and parameter keys/values need an extra escape for
// ';' (the delimiter the grammar reserves for separating segments and
// parameters from each other).
package params

import (
	"strings"

	"github.com/ipldurl/resolve/pkg/ipldurlerr"
)

// Pair is one key/value entry of a Parameters multimap.
type Pair struct {
	Key   string
	Value string
}

// Parameters is an ordered multimap: Get returns the first match, GetAll
// returns every match in insertion order, and Set/Append/Delete mutate a
// copy rather than the receiver, so callers can freely share a
// Parameters value across lens/segment boundaries.
type Parameters struct {
	pairs []Pair
}

// Empty reports whether p has zero entries.
func (p Parameters) Empty() bool {
	return len(p.pairs) == 0
}

// Len returns the number of entries, counting duplicate keys separately.
func (p Parameters) Len() int {
	return len(p.pairs)
}

// Get returns the value of the first entry named key, and whether it was
// found.
func (p Parameters) Get(key string) (string, bool) {
	for _, pr := range p.pairs {
		if pr.Key == key {
			return pr.Value, true
		}
	}
	return "", false
}

// GetAll returns every value named key, in insertion order.
func (p Parameters) GetAll(key string) []string {
	var out []string
	for _, pr := range p.pairs {
		if pr.Key == key {
			out = append(out, pr.Value)
		}
	}
	return out
}

// Has reports whether key has at least one entry.
func (p Parameters) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Pairs returns every key/value entry in insertion order. The returned
// slice is a copy; mutating it does not affect p.
func (p Parameters) Pairs() []Pair {
	out := make([]Pair, len(p.pairs))
	copy(out, p.pairs)
	return out
}

// Append returns a copy of p with a new key/value entry added at the
// end, preserving any existing entries under the same key (this is how
// duplicate-key multimaps are built incrementally while parsing).
func (p Parameters) Append(key, value string) Parameters {
	out := Parameters{pairs: make([]Pair, len(p.pairs), len(p.pairs)+1)}
	copy(out.pairs, p.pairs)
	out.pairs = append(out.pairs, Pair{Key: key, Value: value})
	return out
}

// Set returns a copy of p with every existing entry named key removed
// and a single new entry appended in its place at the position of the
// first removed occurrence (or at the end, if key wasn't present).
func (p Parameters) Set(key, value string) Parameters {
	out := Parameters{}
	replaced := false
	for _, pr := range p.pairs {
		if pr.Key == key {
			if !replaced {
				out.pairs = append(out.pairs, Pair{Key: key, Value: value})
				replaced = true
			}
			continue
		}
		out.pairs = append(out.pairs, pr)
	}
	if !replaced {
		out.pairs = append(out.pairs, Pair{Key: key, Value: value})
	}
	return out
}

// Delete returns a copy of p with every entry named key removed.
func (p Parameters) Delete(key string) Parameters {
	out := Parameters{}
	for _, pr := range p.pairs {
		if pr.Key != key {
			out.pairs = append(out.pairs, pr)
		}
	}
	return out
}

// Clone returns an independent copy of p.
func (p Parameters) Clone() Parameters {
	out := Parameters{pairs: make([]Pair, len(p.pairs))}
	copy(out.pairs, p.pairs)
	return out
}

// New builds a Parameters from a list of pairs, in order.
func New(pairs ...Pair) Parameters {
	return Parameters{pairs: append([]Pair(nil), pairs...)}
}

// Parse reads a semicolon-separated "k=v;k2=v2" string (no leading
// delimiter) into a Parameters value, percent-decoding each key and
// value. A bare "k" with no "=" is recorded with an empty value, the
// usual boolean-flag convention.
func Parse(raw string) (Parameters, error) {
	var out Parameters
	if raw == "" {
		return out, nil
	}
	for _, chunk := range strings.Split(raw, ";") {
		if chunk == "" {
			continue
		}
		k, v, hasEq := strings.Cut(chunk, "=")
		dk, err := DecodeComponent(k)
		if err != nil {
			return Parameters{}, &ipldurlerr.BadURL{Reason: "invalid parameter key: " + err.Error()}
		}
		dv := ""
		if hasEq {
			dv, err = DecodeComponent(v)
			if err != nil {
				return Parameters{}, &ipldurlerr.BadURL{Reason: "invalid parameter value: " + err.Error()}
			}
		}
		out = out.Append(dk, dv)
	}
	return out, nil
}

// String serializes p back into "k=v;k2=v2" form, percent-encoding each
// key and value (including the extra ';' escape), the inverse of Parse.
func (p Parameters) String() string {
	if p.Empty() {
		return ""
	}
	parts := make([]string, 0, len(p.pairs))
	for _, pr := range p.pairs {
		if pr.Value == "" {
			parts = append(parts, EncodeComponent(pr.Key))
		} else {
			parts = append(parts, EncodeComponent(pr.Key)+"="+EncodeComponent(pr.Value))
		}
	}
	return strings.Join(parts, ";")
}
