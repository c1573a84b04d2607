package commands

import (
	"github.com/mosaicnetworks/duststorm/src/config"
	"github.com/spf13/cobra"
)

var (
	_config = config.NewDefaultConfig()
)

//RootCmd is the root command for duststorm
var RootCmd = &cobra.Command{
	Use:              "duststorm",
	Short:            "gossip broadcast node speaking line-delimited JSON on stdin/stdout",
	TraverseChildren: true,
}
