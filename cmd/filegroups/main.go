// Command filegroups finds and optionally removes files in a "work" tree
// that duplicate content already present in a "protect" tree, without ever
// touching the protect tree itself.
package main

import "os"

func main() {
	os.Exit(Run(os.Stdout, os.Stderr, os.Args[1:]))
}
