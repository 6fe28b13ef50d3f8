package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/lhupfeldt/filegroups/confgroups"
	"github.com/lhupfeldt/filegroups/filegroups"
)

const executableName = "filegroups"

// Run isolates the CLI from global state (stdout/stderr/os.Args) the way
// agent-sandbox's Run separates argument parsing from process plumbing.
// Returns the process exit code.
func Run(stdout, stderr io.Writer, args []string) int {
	flags := flag.NewFlagSet(executableName, flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s --protect-dir DIR [--protect-dir DIR ...] --work-dir DIR [--work-dir DIR ...] [flags]\n", executableName)
		flags.PrintDefaults()
	}

	protectDirs := flags.StringArray("protect-dir", nil, "directory whose files must never be deleted/renamed (repeatable)")
	workDirs := flags.StringArray("work-dir", nil, "directory whose duplicate files may be removed (repeatable)")
	protect := flags.StringArray("protect", nil, "regex contributing to every directory's recursive protect patterns (repeatable)")
	protectExclude := flags.String("protect-exclude", "", "basename regex excluded from the protect group")
	workInclude := flags.String("work-include", "", "basename regex required to be included in the work group")
	protectedRegexes := flags.StringArray("protected-regex", nil, "regex enforced at mutation time regardless of group (repeatable)")
	dryRun := flags.Bool("dry-run", true, "simulate without touching the filesystem")
	deleteDuplicates := flags.Bool("delete", false, "delete work-tree files confirmed identical to a protect-tree file")
	deleteSymlinksInstead := flags.Bool("delete-symlinks-instead-of-relinking", false, "delete dependent work-group symlinks instead of relinking them")
	ignoreSiteUserConfig := flags.Bool("ignore-config-dirs-config-files", false, "skip site/user config file discovery")
	ignorePerDirConfig := flags.Bool("ignore-per-directory-config-files", false, "skip in-tree config file discovery")
	debug := flags.Bool("debug", false, "verbose tracing")
	help := flags.BoolP("help", "h", false, "show help")

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}

		fmt.Fprintf(stderr, "filegroups: %v\n", err)

		return 2
	}

	if *help {
		flags.Usage()
		return 0
	}

	if len(*protectDirs) == 0 || len(*workDirs) == 0 {
		fmt.Fprintln(stderr, "filegroups: --protect-dir and --work-dir are each required at least once")
		flags.Usage()

		return 2
	}

	logLines := make([]string, 0, 64)
	logFn := func(line string) {
		logLines = append(logLines, line)
		fmt.Fprintln(stdout, line)
	}

	sess, err := filegroups.New(context.Background(), filegroups.Options{
		ProtectDirs:                      *protectDirs,
		WorkDirs:                         *workDirs,
		Protect:                          *protect,
		ProtectExclude:                   *protectExclude,
		WorkInclude:                      *workInclude,
		ProtectedRegexes:                 *protectedRegexes,
		DryRun:                           *dryRun,
		Debug:                            *debug,
		DeleteSymlinksInsteadOfRelinking: *deleteSymlinksInstead,
		IgnoreConfigDirsConfigFiles:      *ignoreSiteUserConfig,
		IgnorePerDirectoryConfigFiles:    *ignorePerDirConfig,
		Locator:                          confgroups.EnvDirLocator{Env: envMap(), HomeDir: os.Getenv("HOME")},
		Log:                              logFn,
	})
	if err != nil {
		fmt.Fprintf(stderr, "filegroups: %v\n", err)

		return 1
	}

	fmt.Fprintf(stdout, "protect: %d files, %d symlinks across %d roots\n", len(sess.Protect.Files), len(sess.Protect.Symlinks), len(sess.Protect.Roots))
	fmt.Fprintf(stdout, "work:    %d files, %d symlinks across %d roots\n", len(sess.Work.Files), len(sess.Work.Symlinks), len(sess.Work.Roots))

	dupes := findDuplicates(sess)

	for _, d := range dupes {
		if *deleteDuplicates {
			if _, err := sess.Handler.RegisteredDelete(d.workPath, &d.protectPath); err != nil {
				fmt.Fprintf(stderr, "filegroups: %v\n", err)
				return 1
			}
		}
	}

	stats := sess.Handler.Stats()

	summary := fmt.Sprintf(
		"deleted=%d renamed=%d moved=%d relinked=%d symlinks_deleted=%d dangling_symlinks=%d\n",
		stats.Deleted, stats.Renamed, stats.Moved, stats.SymlinksRelinked, stats.SymlinksDeleted, stats.DanglingSymlinks)
	if *dryRun {
		summary = "DRY projected counts: " + summary
	}

	fmt.Fprint(stdout, summary)

	return 0
}

func envMap() map[string]string {
	out := make(map[string]string)

	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			out[kv[:i]] = kv[i+1:]
		}
	}

	return out
}
