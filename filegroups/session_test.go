package filegroups

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lhupfeldt/filegroups/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// Test_New_Classifies_And_Deletes_Duplicate exercises the full construction
// path end to end: a protect tree and a work tree with one duplicate file,
// a dry-run-aware comparison that finds the duplicate, and a dry-run
// registered delete of it.
func Test_New_Classifies_And_Deletes_Duplicate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ki := filepath.Join(root, "ki")
	df := filepath.Join(root, "df")

	writeFile(t, filepath.Join(ki, "keep.txt"), "same content")
	writeFile(t, filepath.Join(df, "dup.txt"), "same content")
	writeFile(t, filepath.Join(df, "unique.txt"), "only in work")

	var logged []string

	sess, err := New(context.Background(), Options{
		ProtectDirs: []string{ki},
		WorkDirs:    []string{df},
		DryRun:      true,
		Log:         func(line string) { logged = append(logged, line) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if len(sess.Protect.Files) != 1 {
		t.Fatalf("expected 1 protect file, got %d", len(sess.Protect.Files))
	}

	if len(sess.Work.Files) != 2 {
		t.Fatalf("expected 2 work files, got %d", len(sess.Work.Files))
	}

	var dupPath, keepPath string

	for p, f := range sess.Work.Files {
		if f.Name == "dup.txt" {
			dupPath = string(p)
		}
	}

	for p, f := range sess.Protect.Files {
		if f.Name == "keep.txt" {
			keepPath = string(p)
		}
	}

	if dupPath == "" || keepPath == "" {
		t.Fatal("expected to find both dup.txt and keep.txt in their groups")
	}

	eq, err := sess.Compare.Equal(types.FsPath(dupPath), types.FsPath(keepPath))
	if err != nil {
		t.Fatalf("Compare.Equal: %v", err)
	}

	if !eq {
		t.Fatal("expected dup.txt and keep.txt to compare equal")
	}

	ok, err := sess.Handler.RegisteredDelete(types.FsPath(dupPath), nil)
	if err != nil || !ok {
		t.Fatalf("RegisteredDelete: ok=%v err=%v", ok, err)
	}

	if _, err := os.Lstat(dupPath); err != nil {
		t.Error("dry-run must not delete the file on disk")
	}

	if sess.Handler.Stats().Deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", sess.Handler.Stats().Deleted)
	}

	if len(logged) == 0 {
		t.Error("expected at least one log line")
	}
}

func Test_New_Rejects_Invalid_ProtectedRegex(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	_, err := New(context.Background(), Options{
		WorkDirs:         []string{root},
		ProtectedRegexes: []string{"["},
	})
	if err == nil {
		t.Fatal("expected an error for an invalid --protected-regex")
	}
}

func Test_New_Drops_Colliding_Root_And_Reports_It(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")

	var logged []string

	sess, err := New(context.Background(), Options{
		ProtectDirs: []string{root},
		WorkDirs:    []string{root},
		Log:         func(line string) { logged = append(logged, line) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if len(sess.DroppedRootConflicts) != 1 {
		t.Fatalf("expected one dropped root conflict, got %d", len(sess.DroppedRootConflicts))
	}

	if len(logged) == 0 {
		t.Error("expected the dropped conflict to be logged")
	}
}
