package helphelpers

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Prepare prepares cmd flag set for the invocation of its usage function
// by hiding flags that we want cobra to parse but we don't want to show
// to the user.
// Patch flags live on the root command so that an invocation like
//
//	kmodver --keep batch /lib/modules/extra
//
// parses, but several of them are meaningless to the inspection
// subcommands and would only clutter their help output.
//
// Prepare is a destructive command, cmd can not be reused after it has
// been called.
func Prepare(cmd *cobra.Command) {
	switch cmd.Name() {
	case "versions":
		hideFlag(cmd, "reference")
		hideFlag(cmd, "module-layout-crc")
		hideFlag(cmd, "keep")
		hideFlag(cmd, "output")
	case "version":
		hideAllFlags(cmd)
	case "kmodver", "batch":
		// All flags apply
	}
}

func hideAllFlags(cmd *cobra.Command) {
	cmd.InheritedFlags().VisitAll(func(flag *pflag.Flag) {
		flag.Hidden = true
	})
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if flag.Name != "verbose" {
			flag.Hidden = true
		}
	})
}

func hideFlag(cmd *cobra.Command, name string) {
	if cmd == nil {
		return
	}
	flag := cmd.Flags().Lookup(name)
	if flag != nil {
		flag.Hidden = true
		return
	}
	hideFlag(cmd.Parent(), name)
}
