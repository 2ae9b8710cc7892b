// Command mmvctl inspects, exports, snapshots and writes MMV files.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
