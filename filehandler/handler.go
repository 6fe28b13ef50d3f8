// Package filehandler is the central state machine that performs (or, in
// dry-run mode, simulates) deletes, renames, and moves while keeping the
// reverse symlink index and protection regexes consistent, the way the
// original Python implementation's FileHandler drove file_handler_compare.py
// and its test suite.
package filehandler

import (
	"fmt"
	"os"
	"regexp"

	"github.com/lhupfeldt/filegroups/types"
)

// Options configures a Handler. All fields are immutable after
// construction except DryRun, which callers toggle with SetDryRun between a
// planning pass and a real execution pass of the same operation sequence.
type Options struct {
	DryRun bool

	// ProtectedRegexes enforce mutation-time safety independent of the
	// must_protect/may_work_on group classification.
	ProtectedRegexes []*regexp.Regexp

	DeleteSymlinksInsteadOfRelinking bool

	Debug bool

	// Log receives one already-formatted line per informational event.
	// Under DryRun every line is prefixed "DRY " by the Handler.
	Log func(line string)
}

// Stats counts completed operations. Under dry-run these are projected
// counts, not actual syscalls performed.
type Stats struct {
	Deleted          int
	Renamed          int
	Moved            int
	SymlinksRelinked int
	SymlinksDeleted  int
	DanglingSymlinks int
}

// Handler performs registered_delete/rename/move operations against a
// protect Group and a work Group, rewriting dependent symlinks and
// maintaining MovedFromIndex bookkeeping so dry-run and real execution
// make identical decisions.
type Handler struct {
	opts Options

	protectGroup *types.Group
	workGroup    *types.Group

	// movedFromIndex maps post-operation absolute path -> pre-operation
	// absolute path, populated only by dry-run renames/moves.
	movedFromIndex map[types.FsPath]types.FsPath
	deleted        map[types.FsPath]bool

	stats Stats
}

// NewHandler builds a Handler bound to the given classified groups.
func NewHandler(protectGroup, workGroup *types.Group, opts Options) *Handler {
	if opts.Log == nil {
		opts.Log = func(string) {}
	}

	h := &Handler{opts: opts, protectGroup: protectGroup, workGroup: workGroup}
	h.Reset()

	return h
}

// Reset clears MovedFromIndex, the deleted set, and counters. Call this
// between a dry-run planning pass and the real execution pass of the same
// operation sequence.
func (h *Handler) Reset() {
	h.movedFromIndex = make(map[types.FsPath]types.FsPath)
	h.deleted = make(map[types.FsPath]bool)
	h.stats = Stats{}
}

// SetDryRun switches the Handler between a dry-run planning pass and a real
// execution pass of the same operation sequence.
func (h *Handler) SetDryRun(dryRun bool) {
	h.opts.DryRun = dryRun
}

// Stats returns a snapshot of the counters accumulated so far.
func (h *Handler) Stats() Stats {
	return h.stats
}

// ResolveCurrentPath follows MovedFromIndex backwards to find the path
// currently on disk (or pretended to be, under dry-run) for a path that
// may be the logical destination of an earlier rename/move in this plan.
func (h *Handler) ResolveCurrentPath(p types.FsPath) types.FsPath {
	cur := p
	seen := make(map[types.FsPath]bool)

	for !seen[cur] {
		seen[cur] = true

		src, ok := h.movedFromIndex[cur]
		if !ok {
			return cur
		}

		cur = src
	}

	return cur
}

func (h *Handler) exists(p types.FsPath) bool {
	phys := h.ResolveCurrentPath(p)
	if h.deleted[phys] {
		return false
	}

	_, err := os.Lstat(string(phys))

	return err == nil
}

func (h *Handler) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if h.opts.DryRun {
		line = "DRY " + line
	}

	h.opts.Log(line)
}

// matchProtected returns the first protected regex matching path, or nil.
func (h *Handler) matchProtected(path types.FsPath) *regexp.Regexp {
	for _, re := range h.opts.ProtectedRegexes {
		if re.MatchString(string(path)) {
			return re
		}
	}

	return nil
}

// checkSourceProtected panics with *types.ProtectViolationError (the
// stricter variant, see DESIGN.md) if path itself matches a protected
// regex -- the caller asked to mutate a path it should already know is
// off-limits.
func (h *Handler) checkSourceProtected(action string, path types.FsPath) {
	if re := h.matchProtected(path); re != nil {
		panic(&types.ProtectViolationError{Path: string(path), Other: action, Pattern: re.String(), Kind: types.ViolationSource})
	}
}

// checkOverwriteProtected panics if dst already exists and matches a
// protected regex. A match against a destination that does not yet exist
// is allowed: creating a new file whose name happens to match is not an
// overwrite.
func (h *Handler) checkOverwriteProtected(dst, src types.FsPath) {
	if !h.exists(dst) {
		return
	}

	if re := h.matchProtected(dst); re != nil {
		panic(&types.ProtectViolationError{Path: string(dst), Other: string(src), Pattern: re.String(), Kind: types.ViolationOverwrite})
	}
}

// RegisteredDelete deletes victim. If corresponding is non-nil, it names a
// peer file expected to remain; symlinks that depended on victim are
// rewritten to point at it instead of going dangling.
func (h *Handler) RegisteredDelete(victim types.FsPath, corresponding *types.FsPath) (bool, error) {
	h.checkSourceProtected("delete", victim)

	h.logf("deleting: %s", victim)

	h.rewriteDependentsForDelete(victim, corresponding)

	if !h.opts.DryRun {
		if err := os.Remove(string(victim)); err != nil {
			return false, &types.IoFailureError{Op: "delete", Path: string(victim), Err: err}
		}
	}

	h.deleted[h.ResolveCurrentPath(victim)] = true
	h.stats.Deleted++

	return true, nil
}

// RegisteredRename renames src to dst, both within the same directory.
func (h *Handler) RegisteredRename(src, dst types.FsPath) (bool, error) {
	ok, err := h.move(src, dst, "renaming")
	if err != nil || !ok {
		return ok, err
	}

	h.stats.Renamed++

	return true, nil
}

// RegisteredMove moves src to dst, which may be in a different directory.
func (h *Handler) RegisteredMove(src, dst types.FsPath) (bool, error) {
	ok, err := h.move(src, dst, "moving")
	if err != nil || !ok {
		return ok, err
	}

	h.stats.Moved++

	return true, nil
}

// moveProtectedAction is the action word reported in a protected-source
// panic for both rename and move, matching the original's action_msg =
// action if action == 'delete' else 'move/rename' (see
// original_source/test/file_handler_regex_protection_test.py).
const moveProtectedAction = "move/rename"

func (h *Handler) move(src, dst types.FsPath, verb string) (bool, error) {
	h.checkSourceProtected(moveProtectedAction, src)
	h.checkOverwriteProtected(dst, src)

	if h.exists(dst) {
		return false, &types.IoFailureError{Op: verb, Path: string(dst), Err: fmt.Errorf("destination already exists")}
	}

	h.logf("%s: %s -> %s", verb, src, dst)

	h.rewriteDependentsForMove(src, dst)

	if !h.opts.DryRun {
		if err := os.Rename(string(src), string(dst)); err != nil {
			return false, &types.IoFailureError{Op: verb, Path: string(src), Err: err}
		}
	}

	if h.opts.DryRun {
		h.movedFromIndex[dst] = h.ResolveCurrentPath(src)
	}

	return true, nil
}
