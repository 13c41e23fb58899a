package main

import (
	"os"

	"github.com/kmodver/kmodver/cmd/kmodver/cmds"
	"github.com/kmodver/kmodver/pkg/version"
)

// Build is the git revision of this build, set by the build script.
var Build string

func main() {
	if Build != "" {
		version.KmodverVersion.Build = Build
	}
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
