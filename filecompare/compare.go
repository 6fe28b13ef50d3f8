// Package filecompare determines whether two regular files are
// byte-identical: a cheap size check first, a full byte comparison only
// if sizes match.
package filecompare

import (
	"bytes"
	"io"
	"os"

	"github.com/lhupfeldt/filegroups/types"
)

// bufSize matches a typical chunked-compare buffer; no claim is made that
// this value is tuned, just that chunking avoids loading whole files.
const bufSize = 64 * 1024

// Comparer decides whether two files have identical contents.
type Comparer interface {
	Equal(a, b types.FsPath) (bool, error)
}

// ByteComparer compares files by size then by full byte content.
type ByteComparer struct{}

// Equal implements Comparer.
func (ByteComparer) Equal(a, b types.FsPath) (bool, error) {
	fa, err := os.Open(string(a))
	if err != nil {
		return false, &types.IoFailureError{Op: "open", Path: string(a), Err: err}
	}
	defer fa.Close()

	fb, err := os.Open(string(b))
	if err != nil {
		return false, &types.IoFailureError{Op: "open", Path: string(b), Err: err}
	}
	defer fb.Close()

	sa, err := fa.Stat()
	if err != nil {
		return false, &types.IoFailureError{Op: "stat", Path: string(a), Err: err}
	}

	sb, err := fb.Stat()
	if err != nil {
		return false, &types.IoFailureError{Op: "stat", Path: string(b), Err: err}
	}

	if sa.Size() != sb.Size() {
		return false, nil
	}

	bufA := make([]byte, bufSize)
	bufB := make([]byte, bufSize)

	for {
		na, erra := io.ReadFull(fa, bufA)
		nb, errb := io.ReadFull(fb, bufB)

		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}

		if erra == io.EOF && errb == io.EOF {
			return true, nil
		}

		if erra != nil && erra != io.ErrUnexpectedEOF {
			return false, &types.IoFailureError{Op: "read", Path: string(a), Err: erra}
		}

		if errb != nil && errb != io.ErrUnexpectedEOF {
			return false, &types.IoFailureError{Op: "read", Path: string(b), Err: errb}
		}

		if erra == io.ErrUnexpectedEOF || errb == io.ErrUnexpectedEOF {
			return true, nil
		}
	}
}

// MovedFromLookup resolves a path that may have been the logical
// destination of a not-yet-performed (dry-run) rename or move back to the
// physical path currently on disk, as filehandler.Handler.ResolveCurrentPath
// does.
type MovedFromLookup interface {
	ResolveCurrentPath(p types.FsPath) types.FsPath
}

// DryRunAware wraps a Comparer so that both operands are first resolved
// through a MovedFromLookup. This lets comparisons run correctly against a
// tree that a dry run has only pretended to rearrange, the same
// responsibility FileHandlerCompare.compare carries in the original
// implementation.
type DryRunAware struct {
	Comparer  Comparer
	MovedFrom MovedFromLookup
	Log       func(format string, args ...any)
}

// NewDryRunAware builds a DryRunAware comparer. log may be nil.
func NewDryRunAware(cmp Comparer, movedFrom MovedFromLookup, log func(string, ...any)) *DryRunAware {
	if log == nil {
		log = func(string, ...any) {}
	}

	return &DryRunAware{Comparer: cmp, MovedFrom: movedFrom, Log: log}
}

// Equal resolves both paths through MovedFrom, compares them, and logs a
// "Duplicates:" line on a match, matching CompareFiles' reporting.
func (d *DryRunAware) Equal(a, b types.FsPath) (bool, error) {
	physA := a
	physB := b

	if d.MovedFrom != nil {
		physA = d.MovedFrom.ResolveCurrentPath(a)
		physB = d.MovedFrom.ResolveCurrentPath(b)
	}

	eq, err := d.Comparer.Equal(physA, physB)
	if err != nil {
		return false, err
	}

	if eq {
		d.Log("Duplicates: '%s' '%s'", a, b)
	}

	return eq, nil
}
