// Package confgroups resolves the effective protect-pattern configuration
// for every directory visited by a walk, merging site-wide, user, and
// in-tree configuration files the way agent-sandbox's LoadConfig layers
// global/project/CLI configuration (see cmd/agent-sandbox/config.go in the
// teacher repo this was adapted from).
package confgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lhupfeldt/filegroups/types"
)

// inTreeConfigNames lists the file names recognized inside a collected
// directory. Exactly one of these may be present per directory.
var inTreeConfigNames = []string{".file_groups.conf", "file_groups.conf"}

// DirLocator discovers the site and user configuration directories. It is
// an injectable capability (never bare os.Getenv calls inside Resolver)
// so tests can supply deterministic locations.
type DirLocator interface {
	// SiteConfigDirs returns zero or more site-wide configuration
	// directories, searched in order.
	SiteConfigDirs() []string
	// UserConfigDir returns the per-user configuration directory and
	// whether one is defined for this environment.
	UserConfigDir() (string, bool)
}

// EnvDirLocator implements DirLocator from an explicit environment map and
// XDG-style conventions, the same convention-over-os.Getenv approach the
// teacher's getUserConfigBasePath uses.
type EnvDirLocator struct {
	Env     map[string]string
	HomeDir string
}

// SiteConfigDirs implements DirLocator. FILE_GROUPS_SITE_CONFIG_DIRS is a
// colon-separated list, mirroring the Python original's use of
// AppDirs.site_config_dir (itself colon-separated on Linux).
func (l EnvDirLocator) SiteConfigDirs() []string {
	raw, ok := l.Env["FILE_GROUPS_SITE_CONFIG_DIRS"]
	if !ok || raw == "" {
		return nil
	}

	return strings.Split(raw, ":")
}

// UserConfigDir implements DirLocator.
func (l EnvDirLocator) UserConfigDir() (string, bool) {
	if xdg := l.Env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "file_groups"), true
	}

	if l.HomeDir == "" {
		return "", false
	}

	return filepath.Join(l.HomeDir, ".config", "file_groups"), true
}

// Options configures a Resolver.
type Options struct {
	// Protect patterns are compiled and contribute to every directory's
	// Recursive set, exactly as if declared "global" in a site config.
	Protect []string

	Locator DirLocator

	// IgnoreConfigDirsConfigFiles skips loading site/user config files.
	IgnoreConfigDirsConfigFiles bool
	// IgnorePerDirectoryConfigFiles skips reading in-tree config files;
	// every directory then inherits only its parent's Recursive set.
	IgnorePerDirectoryConfigFiles bool

	// Remember retains every produced DirConfig, keyed by absolute
	// directory path, for post-hoc inspection.
	Remember bool

	Debug bool
	Trace func(format string, args ...any)
}

// Resolver produces the effective DirConfig for any directory encountered
// during a walk, merging user-supplied patterns, site config "global",
// user config "global", and in-tree "local"/"recursive" declarations.
type Resolver struct {
	opts Options

	root *types.DirConfig

	mu         sync.Mutex
	remembered map[string]*types.DirConfig
}

// NewResolver builds a Resolver, loading and merging site/user config files
// immediately in order: site config global, then user config global.
func NewResolver(opts Options) (*Resolver, error) {
	if opts.Trace == nil {
		opts.Trace = func(string, ...any) {}
	}

	seedPatterns := make([]*types.ProtectPattern, 0, len(opts.Protect))

	for _, src := range opts.Protect {
		p, err := types.NewProtectPattern(src, types.ScopeRecursive)
		if err != nil {
			return nil, &types.ConfigInvalidError{Reason: fmt.Sprintf("compiling --protect pattern %q: %v", src, err)}
		}

		seedPatterns = append(seedPatterns, p)
	}

	r := &Resolver{
		opts:       opts,
		root:       &types.DirConfig{Recursive: seedPatterns},
		remembered: make(map[string]*types.DirConfig),
	}

	if opts.IgnoreConfigDirsConfigFiles || opts.Locator == nil {
		return r, nil
	}

	dirs := append(append([]string{}, opts.Locator.SiteConfigDirs()...), "")
	if userDir, ok := opts.Locator.UserConfigDir(); ok {
		dirs[len(dirs)-1] = userDir
	} else {
		dirs = dirs[:len(dirs)-1]
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}

		if _, err := os.Stat(dir); err != nil {
			continue
		}

		global, local, recursive, confPath, err := readConfigFile(dir, true)
		if err != nil {
			return nil, err
		}

		if confPath == "" {
			continue
		}

		opts.Trace("loaded config-dir config: %s", confPath)
		r.root.Recursive = append(r.root.Recursive, global...)
		r.root.Recursive = append(r.root.Recursive, recursive...)
		r.root.Recursive = dedup(r.root.Recursive)

		if opts.Remember {
			r.remembered[dir] = &types.DirConfig{Local: local, Recursive: append([]*types.ProtectPattern{}, r.root.Recursive...)}
		}
	}

	return r, nil
}

// RootConfig returns the DirConfig that seeds every top-level collected
// root (protect or work) -- i.e. the merge of --protect patterns, site
// config "global", and user config "global".
func (r *Resolver) RootConfig() *types.DirConfig {
	return r.root
}

// Resolve computes the effective DirConfig for dir given its parent's
// already-resolved DirConfig, reading dir's own in-tree config file (if
// any). It returns the name of the in-tree config file found (empty if
// none), so callers can exclude it from classification.
func (r *Resolver) Resolve(dir types.FsPath, parent *types.DirConfig) (*types.DirConfig, string, error) {
	if r.opts.IgnorePerDirectoryConfigFiles {
		cfg := types.NewChildConfig(parent, nil, nil)
		r.remember(dir, cfg)

		return cfg, "", nil
	}

	global, local, recursive, confName, err := readConfigFile(string(dir), false)
	if err != nil {
		return nil, "", err
	}

	if len(global) > 0 {
		return nil, "", &types.ConfigInvalidError{Path: filepath.Join(string(dir), confName), Reason: "'global' is only allowed in site/user config files"}
	}

	cfg := types.NewChildConfig(parent, local, recursive)
	r.remember(dir, cfg)

	return cfg, confName, nil
}

func (r *Resolver) remember(dir types.FsPath, cfg *types.DirConfig) {
	if !r.opts.Remember {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.remembered[string(dir)] = cfg
}

// Remembered returns the retained DirConfig for dir, if Options.Remember
// was set and dir was visited.
func (r *Resolver) Remembered(dir string) (*types.DirConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.remembered[dir]

	return cfg, ok
}

// readConfigFile finds the single config file (if any) in dir, parses it,
// and compiles its patterns. allowGlobal permits the "global" sub-key
// (site/user config files only); in-tree files using "global" are
// rejected here by validate with a ConfigInvalidError.
func readConfigFile(dir string, allowGlobal bool) (global, local, recursive []*types.ProtectPattern, foundName string, err error) {
	names := inTreeConfigNames
	if allowGlobal {
		names = []string{"file_groups.conf"}
	}

	var found []string

	for _, name := range names {
		p := filepath.Join(dir, name)
		if _, statErr := os.Stat(p); statErr == nil {
			found = append(found, name)
		}
	}

	if len(found) == 0 {
		return nil, nil, nil, "", nil
	}

	if len(found) > 1 {
		return nil, nil, nil, "", &types.ConfigInvalidError{Path: dir, Reason: fmt.Sprintf("more than one config file in dir: %v", found)}
	}

	foundName = found[0]
	path := filepath.Join(dir, foundName)

	doc, err := parseConfigFile(path)
	if err != nil {
		return nil, nil, nil, "", err
	}

	if err := doc.validate(allowGlobal, path); err != nil {
		return nil, nil, nil, "", err
	}

	global, err = compileAll(doc.FileGroups.Protect.Global, types.ScopeGlobal)
	if err != nil {
		return nil, nil, nil, "", &types.ConfigInvalidError{Path: path, Reason: err.Error()}
	}

	local, err = compileAll(doc.FileGroups.Protect.Local, types.ScopeLocal)
	if err != nil {
		return nil, nil, nil, "", &types.ConfigInvalidError{Path: path, Reason: err.Error()}
	}

	recursive, err = compileAll(doc.FileGroups.Protect.Recursive, types.ScopeRecursive)
	if err != nil {
		return nil, nil, nil, "", &types.ConfigInvalidError{Path: path, Reason: err.Error()}
	}

	return global, local, recursive, foundName, nil
}

func compileAll(sources []string, scope types.Scope) ([]*types.ProtectPattern, error) {
	out := make([]*types.ProtectPattern, 0, len(sources))

	for _, s := range sources {
		p, err := types.NewProtectPattern(s, scope)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", s, err)
		}

		out = append(out, p)
	}

	return out, nil
}

func dedup(patterns []*types.ProtectPattern) []*types.ProtectPattern {
	seen := make(map[string]bool, len(patterns))
	out := make([]*types.ProtectPattern, 0, len(patterns))

	for _, p := range patterns {
		if seen[p.Source] {
			continue
		}

		seen[p.Source] = true
		out = append(out, p)
	}

	return out
}
