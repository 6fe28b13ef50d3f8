package main

import (
	"github.com/lhupfeldt/filegroups/filegroups"
	"github.com/lhupfeldt/filegroups/types"
)

type duplicate struct {
	workPath    types.FsPath
	protectPath types.FsPath
}

// findDuplicates reports every work-tree file that is byte-identical to
// some protect-tree file.
func findDuplicates(sess *filegroups.Session) []duplicate {
	var out []duplicate

	for workPath := range sess.Work.Files {
		for protectPath := range sess.Protect.Files {
			eq, err := sess.Compare.Equal(workPath, protectPath)
			if err != nil || !eq {
				continue
			}

			out = append(out, duplicate{workPath: workPath, protectPath: protectPath})

			break
		}
	}

	return out
}
