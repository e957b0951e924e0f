package root

import (
	"github.com/spf13/cobra"

	"sigmakit/cmd/sigmactl/audit"
	"sigmakit/cmd/sigmactl/prove"
	"sigmakit/cmd/sigmactl/selftest"
	"sigmakit/cmd/sigmactl/serve"
	"sigmakit/cmd/sigmactl/version"
)

func GetRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:          "sigmactl",
		Short:        "Serve and prove Σ-protocol statements",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serve.GetCommand())
	rootCmd.AddCommand(prove.GetCommand())
	rootCmd.AddCommand(selftest.GetCommand())
	rootCmd.AddCommand(audit.GetCommand())
	rootCmd.AddCommand(version.GetCommand())
	return rootCmd
}
