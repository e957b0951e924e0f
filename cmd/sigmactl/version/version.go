package version

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sigmakit/internal/proto"
)

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Command to show the wire protocol version",
		Run:   runCommand,
	}

	return cmd
}

func runCommand(c *cobra.Command, args []string) {
	fmt.Fprintln(os.Stdout, proto.ProtoVersion)
}
