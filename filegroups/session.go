// Package filegroups ties together directory classification, protection
// configuration, duplicate comparison, and file-operation execution into a
// single entry point, the way agent-sandbox's Sandbox type wires together
// its own mount/command/environment subsystems behind one constructor.
package filegroups

import (
	"context"
	"fmt"
	"regexp"

	"github.com/lhupfeldt/filegroups/confgroups"
	"github.com/lhupfeldt/filegroups/filecompare"
	"github.com/lhupfeldt/filegroups/filehandler"
	"github.com/lhupfeldt/filegroups/groupwalk"
	"github.com/lhupfeldt/filegroups/types"
)

// Options configures a Session end to end.
type Options struct {
	ProtectDirs []string
	WorkDirs    []string

	// Protect contributes recursive patterns to every directory.
	Protect []string
	// ProtectExclude/WorkInclude are basename filters over the two
	// groups' collected files.
	ProtectExclude string
	WorkInclude    string

	// ProtectedRegexes enforce mutation-time safety independent of
	// group membership.
	ProtectedRegexes []string

	DryRun                           bool
	Debug                            bool
	DeleteSymlinksInsteadOfRelinking bool
	IgnoreConfigDirsConfigFiles      bool
	IgnorePerDirectoryConfigFiles    bool

	Locator confgroups.DirLocator

	Log func(line string)
}

// Session bundles a classified tree, its config resolver, a dry-run-aware
// comparer, and a file handler bound to the same groups.
type Session struct {
	Resolver *confgroups.Resolver
	Walker   *groupwalk.Walker
	Protect  *types.Group
	Work     *types.Group
	Handler  *filehandler.Handler
	Compare  *filecompare.DryRunAware

	DroppedRootConflicts []*types.RootConflictError
}

// New resolves configuration, classifies the tree, and wires a Handler and
// Comparer bound to the resulting groups.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Log == nil {
		opts.Log = func(string) {}
	}

	resolver, err := confgroups.NewResolver(confgroups.Options{
		Protect:                       opts.Protect,
		Locator:                       opts.Locator,
		IgnoreConfigDirsConfigFiles:   opts.IgnoreConfigDirsConfigFiles,
		IgnorePerDirectoryConfigFiles: opts.IgnorePerDirectoryConfigFiles,
		Remember:                      opts.Debug,
		Debug:                         opts.Debug,
		Trace:                         func(f string, a ...any) { opts.Log(fmt.Sprintf(f, a...)) },
	})
	if err != nil {
		return nil, err
	}

	protectExclude, err := compileOptional(opts.ProtectExclude)
	if err != nil {
		return nil, &types.ConfigInvalidError{Reason: fmt.Sprintf("--protect-exclude: %v", err)}
	}

	workInclude, err := compileOptional(opts.WorkInclude)
	if err != nil {
		return nil, &types.ConfigInvalidError{Reason: fmt.Sprintf("--work-include: %v", err)}
	}

	protectedRegexes := make([]*regexp.Regexp, 0, len(opts.ProtectedRegexes))

	for _, src := range opts.ProtectedRegexes {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, &types.ConfigInvalidError{Reason: fmt.Sprintf("--protected-regex %q: %v", src, err)}
		}

		protectedRegexes = append(protectedRegexes, re)
	}

	walker := groupwalk.NewWalker(resolver)
	walker.Trace = func(f string, a ...any) { opts.Log(fmt.Sprintf(f, a...)) }

	protectGroup, workGroup, dropped, err := walker.Classify(ctx, opts.ProtectDirs, opts.WorkDirs, protectExclude, workInclude)
	if err != nil {
		return nil, err
	}

	for _, d := range dropped {
		opts.Log(d.Error())
	}

	handler := filehandler.NewHandler(protectGroup, workGroup, filehandler.Options{
		DryRun:                           opts.DryRun,
		ProtectedRegexes:                 protectedRegexes,
		DeleteSymlinksInsteadOfRelinking: opts.DeleteSymlinksInsteadOfRelinking,
		Debug:                            opts.Debug,
		Log:                              opts.Log,
	})

	comparer := filecompare.NewDryRunAware(filecompare.ByteComparer{}, handler, func(f string, a ...any) { opts.Log(fmt.Sprintf(f, a...)) })

	return &Session{
		Resolver:             resolver,
		Walker:               walker,
		Protect:              protectGroup,
		Work:                 workGroup,
		Handler:              handler,
		Compare:              comparer,
		DroppedRootConflicts: dropped,
	}, nil
}

func compileOptional(src string) (*regexp.Regexp, error) {
	if src == "" {
		return nil, nil
	}

	return regexp.Compile(src)
}
