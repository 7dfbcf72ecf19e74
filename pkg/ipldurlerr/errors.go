// Package ipldurlerr defines the error taxonomy shared by the URL model,
// lens pipeline, resolver and patcher. Each kind is a distinct Go type so
// callers can use errors.As to recover structured detail instead of
// matching on message text.
package ipldurlerr

import "fmt"

// BadURL reports a malformed ipld:// URL: wrong scheme, unparsable CID, or
// an unknown multibase prefix.
type BadURL struct {
	Reason string
}

func (e *BadURL) Error() string { return fmt.Sprintf("bad url: %s", e.Reason) }

// PathNotFound reports a missing key or index encountered while walking a
// segment path, either during resolve or during a patch descent.
type PathNotFound struct {
	Segment string
}

func (e *PathNotFound) Error() string { return fmt.Sprintf("path not found: %q", e.Segment) }

// SchemaMismatch reports that a typed view rejected the node it was asked
// to type. Diagnostic carries the node's printable form plus the schema
// DSL text so the caller can see why the shapes disagreed.
type SchemaMismatch struct {
	TypeName      string
	NodePrintable string
	SchemaDSL     string
	Cause         error
}

func (e *SchemaMismatch) Error() string {
	return fmt.Sprintf("schema mismatch: node %s does not match type %q: %v", e.NodePrintable, e.TypeName, e.Cause)
}

func (e *SchemaMismatch) Unwrap() error { return e.Cause }

// UnknownADL reports that a `;adl=` parameter named a function that isn't
// registered.
type UnknownADL struct {
	Name  string
	Known []string
}

func (e *UnknownADL) Error() string {
	return fmt.Sprintf("unknown adl %q, known: %v", e.Name, e.Known)
}

// UnsupportedCodec reports a CID whose codec code has no entry in the
// patcher's codec table.
type UnsupportedCodec struct {
	Code uint64
}

func (e *UnsupportedCodec) Error() string {
	return fmt.Sprintf("unsupported codec 0x%x", e.Code)
}

// InvalidPatchOp reports a patch operation that cannot be interpreted:
// an unrecognized op name, or an empty path reaching the patcher.
type InvalidPatchOp struct {
	Reason string
}

func (e *InvalidPatchOp) Error() string { return fmt.Sprintf("invalid patch operation: %s", e.Reason) }

// MissingKey reports a remove/replace operation whose target key or index
// is absent from the parent container.
type MissingKey struct {
	Key string
}

func (e *MissingKey) Error() string { return fmt.Sprintf("missing key: %q", e.Key) }

// TestFailed reports a `test` patch operation whose shallow-equality check
// did not hold.
type TestFailed struct {
	Path     string
	Expected string
	Actual   string
}

func (e *TestFailed) Error() string {
	return fmt.Sprintf("test operation for path %q failed: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// StoreError wraps an error returned by the embedder's Store
// implementation, unmodified aside from context.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store error during %s: %v", e.Op, e.Cause) }

func (e *StoreError) Unwrap() error { return e.Cause }
