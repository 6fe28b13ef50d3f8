package types

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Scope controls how far a ProtectPattern reaches from the directory it was
// declared in.
type Scope int

const (
	// ScopeLocal patterns apply only in the directory where declared.
	ScopeLocal Scope = iota
	// ScopeRecursive patterns extend to all descendant directories.
	ScopeRecursive
	// ScopeGlobal patterns are accepted only in site/user config files and
	// are promoted into every directory's ScopeRecursive set.
	ScopeGlobal
)

// ProtectPattern is a compiled regular expression plus the scope it was
// declared with. Two patterns are equal (for set/dedup purposes) when their
// source text is identical, regardless of scope -- matching the Python
// original's use of a set of compiled regexes keyed by pattern text.
type ProtectPattern struct {
	Source string
	Scope  Scope
	re     *regexp.Regexp
}

// NewProtectPattern compiles source into a ProtectPattern.
func NewProtectPattern(source string, scope Scope) (*ProtectPattern, error) {
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}

	return &ProtectPattern{Source: source, Scope: scope, re: re}, nil
}

// Matches reports whether the pattern matches entry. Per spec: if the
// pattern's own textual form contains a path separator, it is matched
// (search, not anchored) against absPath; otherwise against basename.
func (p *ProtectPattern) Matches(absPath FsPath, basename string) bool {
	if strings.ContainsRune(p.Source, filepath.Separator) {
		return p.re.MatchString(string(absPath))
	}

	return p.re.MatchString(basename)
}
