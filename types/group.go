package types

import "regexp"

// GroupKind discriminates the two roles a directory subtree can be assigned.
type GroupKind int

const (
	// MustProtect files must never be deleted, renamed, or overwritten.
	MustProtect GroupKind = iota
	// MayWorkOn files may be deleted, renamed, or moved.
	MayWorkOn
)

func (k GroupKind) String() string {
	if k == MustProtect {
		return "must_protect"
	}

	return "may_work_on"
}

// Other returns the opposite kind.
func (k GroupKind) Other() GroupKind {
	if k == MustProtect {
		return MayWorkOn
	}

	return MustProtect
}

// FileEntry is a collected regular file.
type FileEntry struct {
	Path FsPath
	Name string
}

// SymlinkEntry is a collected symlink whose final resolution is a regular
// file (or an unresolvable/dangling target, treated the same way).
type SymlinkEntry struct {
	Path FsPath // the symlink's own absolute path
	Name string
	Dir  FsPath // Path's parent directory, canonical

	RawTarget     string // exact text returned by readlink, unresolved
	LexicalTarget FsPath // normpath(Dir + RawTarget); see Glossary
}

// Group holds one kind's collected roots, files, and symlinks. Include and
// exclude filtering is expressed as a single struct with a filter regexp
// and an isExclude discriminator rather than two separate subtypes, so a
// single matchFilter dispatch replaces a type switch.
type Group struct {
	Kind GroupKind

	// Roots maps canonicalized absolute path -> original caller-supplied
	// path, for diagnostics.
	Roots map[FsPath]string

	Files            map[FsPath]*FileEntry
	Symlinks         map[FsPath]*SymlinkEntry
	SymlinksByTarget map[FsPath][]*SymlinkEntry

	DirsScanned        int
	DirSymlinksSkipped int

	filter    *regexp.Regexp
	isExclude bool // true: filter is an exclude pattern; false: an include pattern
}

// NewProtectGroup builds an empty MustProtect group. exclude, if non-nil,
// drops matching basenames from Files.
func NewProtectGroup(roots map[FsPath]string, exclude *regexp.Regexp) *Group {
	return newGroup(MustProtect, roots, exclude, true)
}

// NewWorkGroup builds an empty MayWorkOn group. include, if non-nil, keeps
// only matching basenames in Files.
func NewWorkGroup(roots map[FsPath]string, include *regexp.Regexp) *Group {
	return newGroup(MayWorkOn, roots, include, false)
}

func newGroup(kind GroupKind, roots map[FsPath]string, filter *regexp.Regexp, isExclude bool) *Group {
	return &Group{
		Kind:             kind,
		Roots:            roots,
		Files:            make(map[FsPath]*FileEntry),
		Symlinks:         make(map[FsPath]*SymlinkEntry),
		SymlinksByTarget: make(map[FsPath][]*SymlinkEntry),
		filter:           filter,
		isExclude:        isExclude,
	}
}

// AddFileIfMatched applies the group's include/exclude filter and, if the
// entry survives, adds it to Files. Symlinks are never filtered and must
// be added directly via AddSymlink instead.
func (g *Group) AddFileIfMatched(entry *FileEntry) {
	if !g.matchFilter(entry.Name) {
		return
	}

	g.Files[entry.Path] = entry
}

// matchFilter dispatches on the group's discriminator: an exclude group
// keeps everything NOT matching filter; an include group keeps only what
// matches filter. A nil filter means "no restriction" for either kind.
func (g *Group) matchFilter(basename string) bool {
	if g.filter == nil {
		return true
	}

	matched := g.filter.MatchString(basename)
	if g.isExclude {
		return !matched
	}

	return matched
}

// AddSymlink records a symlink in both the direct map and the reverse
// target index.
func (g *Group) AddSymlink(entry *SymlinkEntry) {
	g.Symlinks[entry.Path] = entry
	g.SymlinksByTarget[entry.LexicalTarget] = append(g.SymlinksByTarget[entry.LexicalTarget], entry)
}
