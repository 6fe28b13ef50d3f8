package groupwalk

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/lhupfeldt/filegroups/confgroups"
	"github.com/lhupfeldt/filegroups/types"
)

// Walker collects a MustProtect group and a MayWorkOn group from the
// filesystem, honoring per-directory configuration resolved by Resolver.
type Walker struct {
	Resolver *confgroups.Resolver
	Trace    func(format string, args ...any)
}

// NewWalker builds a Walker. resolver must not be nil.
func NewWalker(resolver *confgroups.Resolver) *Walker {
	return &Walker{Resolver: resolver, Trace: func(string, ...any) {}}
}

// canonicalizeRoots canonicalizes a caller-supplied directory list into a
// canonical-path -> original-arg map, matching FileGroups.__init__'s
// abspath(realpath(...)) canonicalization.
func canonicalizeRoots(dirs []string) (map[types.FsPath]string, error) {
	out := make(map[types.FsPath]string, len(dirs))

	for _, d := range dirs {
		c, err := types.Canonicalize(d)
		if err != nil {
			return nil, &types.IoFailureError{Op: "canonicalize", Path: d, Err: err}
		}

		out[c] = d
	}

	return out, nil
}

// Classify walks protectDirs and workDirs and returns their respective
// groups. A work root that coincides with a protect root is dropped (not
// fatal) and reported via droppedRootConflicts, mirroring the Python
// original's diagnostic-and-continue behavior in FileGroups.__init__.
func (w *Walker) Classify(ctx context.Context, protectDirs, workDirs []string, protectExclude, workInclude *regexp.Regexp) (protectGroup, workGroup *types.Group, droppedRootConflicts []*types.RootConflictError, err error) {
	protectRoots, err := canonicalizeRoots(protectDirs)
	if err != nil {
		return nil, nil, nil, err
	}

	workRoots, err := canonicalizeRoots(workDirs)
	if err != nil {
		return nil, nil, nil, err
	}

	for canon, workArg := range workRoots {
		if protectArg, collide := protectRoots[canon]; collide {
			droppedRootConflicts = append(droppedRootConflicts, &types.RootConflictError{
				Canonical: canon, ProtectArg: protectArg, WorkArg: workArg,
			})
			delete(workRoots, canon)
		}
	}

	protectGroup = types.NewProtectGroup(protectRoots, protectExclude)
	workGroup = types.NewWorkGroup(workRoots, workInclude)

	rootKind := make(map[types.FsPath]types.GroupKind, len(protectRoots)+len(workRoots))
	for c := range protectRoots {
		rootKind[c] = types.MustProtect
	}

	for c := range workRoots {
		rootKind[c] = types.MayWorkOn
	}

	checked := make(map[string]bool)

	sortedRoots := make([]types.FsPath, 0, len(rootKind))
	for c := range rootKind {
		sortedRoots = append(sortedRoots, c)
	}

	sort.Slice(sortedRoots, func(i, j int) bool { return sortedRoots[i] < sortedRoots[j] })

	for _, root := range sortedRoots {
		kind := rootKind[root]

		tree, scanErr := scanTree(ctx, string(root))
		if scanErr != nil {
			return nil, nil, droppedRootConflicts, scanErr
		}

		target := protectGroup
		if kind == types.MayWorkOn {
			target = workGroup
		}

		rootCfg := w.Resolver.RootConfig()
		if err := w.walkNode(string(root), tree, rootCfg, kind, target, protectGroup, workGroup, rootKind, checked); err != nil {
			return nil, nil, droppedRootConflicts, err
		}
	}

	return protectGroup, workGroup, droppedRootConflicts, nil
}

// walkNode classifies one directory and recurses into its subdirectories,
// switching target groups whenever a subdirectory is itself a root of the
// opposite kind, exactly as find_group's recursive walk does in the
// original Python collector.
func (w *Walker) walkNode(
	dir string,
	tree map[string]*dirEntry,
	parentCfg *types.DirConfig,
	kind types.GroupKind,
	target, protectGroup, workGroup *types.Group,
	rootKind map[types.FsPath]types.GroupKind,
	checked map[string]bool,
) error {
	if checked[dir] {
		return nil
	}

	checked[dir] = true

	node, ok := tree[dir]
	if !ok {
		return nil
	}

	canonDir := types.FsPath(dir)

	cfg, confName, err := w.Resolver.Resolve(canonDir, parentCfg)
	if err != nil {
		return err
	}

	target.DirsScanned++

	for _, e := range node.files {
		if e.Name() == confName {
			continue
		}

		info, err := e.Info()
		if err != nil {
			return &types.ScanFailedError{Dir: dir, Err: err}
		}

		path := types.FsPath(filepath.Join(dir, e.Name()))

		if info.Mode()&os.ModeSymlink != 0 {
			w.classifySymlink(dir, e.Name(), target)
			continue
		}

		if target == workGroup && cfg.Match(path, e.Name()) != nil {
			protectGroup.AddFileIfMatched(&types.FileEntry{Path: path, Name: e.Name()})
			continue
		}

		target.AddFileIfMatched(&types.FileEntry{Path: path, Name: e.Name()})
	}

	for _, name := range node.subs {
		sub := filepath.Join(dir, name)
		subKind := kind
		subTarget := target

		if k, isRoot := rootKind[types.FsPath(sub)]; isRoot && k != kind {
			subKind = k
			if k == types.MayWorkOn {
				subTarget = workGroup
			} else {
				subTarget = protectGroup
			}
		}

		if err := w.walkNode(sub, tree, cfg, subKind, subTarget, protectGroup, workGroup, rootKind, checked); err != nil {
			return err
		}
	}

	return nil
}

func (w *Walker) classifySymlink(dir, name string, target *types.Group) {
	linkPath := filepath.Join(dir, name)

	raw, err := os.Readlink(linkPath)
	if err != nil {
		target.DirSymlinksSkipped++
		return
	}

	// A symlink whose final resolution is a directory is counted and
	// skipped, never followed into (spec §4.2). A dangling symlink (the
	// Stat fails) is treated as a symlink-to-file candidate, since it may
	// point at a file a later operation in the same plan creates/restores.
	if info, statErr := os.Stat(linkPath); statErr == nil && info.IsDir() {
		target.DirSymlinksSkipped++
		return
	}

	lexicalTarget := raw
	if !filepath.IsAbs(raw) {
		lexicalTarget = filepath.Join(dir, raw)
	}

	lexicalTarget = filepath.Clean(lexicalTarget)

	target.AddSymlink(&types.SymlinkEntry{
		Path:          types.FsPath(linkPath),
		Name:          name,
		Dir:           types.FsPath(dir),
		RawTarget:     raw,
		LexicalTarget: types.FsPath(lexicalTarget),
	})
}
