package filecompare

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lhupfeldt/filegroups/types"
)

func writeFile(t *testing.T, path, content string) types.FsPath {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return types.FsPath(path)
}

func Test_ByteComparer_Equal_True_For_Identical_Content(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "hello world")
	b := writeFile(t, filepath.Join(dir, "b"), "hello world")

	eq, err := (ByteComparer{}).Equal(a, b)
	if err != nil {
		t.Fatalf("Equal: %v", err)
	}

	if !eq {
		t.Error("expected identical files to compare equal")
	}
}

func Test_ByteComparer_Equal_False_For_Different_Size(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "hello")
	b := writeFile(t, filepath.Join(dir, "b"), "hello world")

	eq, err := (ByteComparer{}).Equal(a, b)
	if err != nil {
		t.Fatalf("Equal: %v", err)
	}

	if eq {
		t.Error("expected different-size files to compare unequal")
	}
}

func Test_ByteComparer_Equal_False_For_Same_Size_Different_Content(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a"), "aaaaa")
	b := writeFile(t, filepath.Join(dir, "b"), "bbbbb")

	eq, err := (ByteComparer{}).Equal(a, b)
	if err != nil {
		t.Fatalf("Equal: %v", err)
	}

	if eq {
		t.Error("expected same-size different-content files to compare unequal")
	}
}

type fakeMovedFrom map[types.FsPath]types.FsPath

func (f fakeMovedFrom) ResolveCurrentPath(p types.FsPath) types.FsPath {
	if src, ok := f[p]; ok {
		return src
	}

	return p
}

func Test_DryRunAware_Equal_Resolves_Both_Operands_Through_MovedFrom(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	physical := writeFile(t, filepath.Join(dir, "physical"), "same")
	other := writeFile(t, filepath.Join(dir, "other"), "same")

	logical := types.FsPath(filepath.Join(dir, "logical-does-not-exist"))
	movedFrom := fakeMovedFrom{logical: physical}

	var loggedLines []string
	cmp := NewDryRunAware(ByteComparer{}, movedFrom, func(format string, args ...any) {
		loggedLines = append(loggedLines, format)
		_ = args
	})

	eq, err := cmp.Equal(logical, other)
	if err != nil {
		t.Fatalf("Equal: %v", err)
	}

	if !eq {
		t.Error("expected the resolved physical path to compare equal")
	}

	if len(loggedLines) != 1 {
		t.Errorf("expected one Duplicates log line, got %d", len(loggedLines))
	}
}
