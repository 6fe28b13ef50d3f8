// Package groupwalk discovers which files belong to the protect group and
// which belong to the work group by walking the filesystem. It splits the
// work into a concurrent I/O scan phase, modeled on bazel-gazelle's
// walk.buildTrie/walkDir bounded-goroutine directory trie builder, followed
// by a sequential, deterministic classification pass modeled on the
// original Python implementation's find_group recursion.
package groupwalk

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/lhupfeldt/filegroups/types"
)

// dirEntry is one scanned directory: its immediate files, symlinks, and
// subdirectory names, sorted for deterministic downstream processing.
type dirEntry struct {
	path  string
	files []os.DirEntry // every non-directory entry (files, symlinks, others), name-sorted
	subs  []string      // subdirectory names, sorted
}

// scanTree walks root concurrently (bounded by GOMAXPROCS, as gazelle's
// walkDir does with its limitCh) and returns every directory reached,
// keyed by absolute path. It does not follow symlinked directories.
func scanTree(ctx context.Context, root string) (map[string]*dirEntry, error) {
	result := make(map[string]*dirEntry)
	resultCh := make(chan *dirEntry)
	done := make(chan struct{})

	go func() {
		for d := range resultCh {
			result[d.path] = d
		}

		close(done)
	}()

	limit := runtime.GOMAXPROCS(0)
	if limit < 1 {
		limit = 1
	}

	limitCh := make(chan struct{}, limit)

	g, gctx := errgroup.WithContext(ctx)

	var walk func(dir string) error
	walk = func(dir string) error {
		select {
		case limitCh <- struct{}{}:
			defer func() { <-limitCh }()
		case <-gctx.Done():
			return gctx.Err()
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return &types.ScanFailedError{Dir: dir, Err: err}
		}

		d := &dirEntry{path: dir}

		var subdirs []string

		for _, e := range entries {
			if e.IsDir() {
				subdirs = append(subdirs, e.Name())
				continue
			}

			d.files = append(d.files, e)
		}

		sort.Strings(subdirs)
		sort.Slice(d.files, func(i, j int) bool { return d.files[i].Name() < d.files[j].Name() })
		d.subs = subdirs

		select {
		case resultCh <- d:
		case <-gctx.Done():
			return gctx.Err()
		}

		for _, name := range subdirs {
			sub := filepath.Join(dir, name)
			g.Go(func() error { return walk(sub) })
		}

		return nil
	}

	g.Go(func() error { return walk(root) })

	err := g.Wait()
	close(resultCh)
	<-done

	if err != nil {
		return nil, err
	}

	return result, nil
}
