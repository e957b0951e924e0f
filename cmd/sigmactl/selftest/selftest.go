package selftest

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sigmakit/cmd/sigmactl/common"
	"sigmakit/internal/catalog"
	"sigmakit/internal/codec"
	"sigmakit/internal/config"
	"sigmakit/internal/metrics"
)

const (
	seedFlag     = "seed"
	snapshotFlag = "snapshot"
)

var (
	seed         string
	snapshotPath string
)

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Command to run, simulate and compress every catalog statement locally",
		RunE:  runCommand,
	}
	cmd.Flags().StringVar(&seed, seedFlag, config.DefaultSeed, "Used to specify the seed the statement catalog is derived from")
	cmd.Flags().StringVar(&snapshotPath, snapshotFlag, "", "Used to specify where the metrics snapshot is written")
	return cmd
}

func runCommand(cmd *cobra.Command, _ []string) error {
	entries, err := catalog.New(seed)
	if err != nil {
		return err
	}
	m := metrics.New()
	results, err := catalog.SelfTest(cmd.Context(), entries, seed, codec.LimitsFrom(config.GetDefaultConfig()), m)
	if err != nil {
		return err
	}

	rows := []string{"Statement | Accepted | Simulated | Full | Compressed | Fingerprint"}
	failed := 0
	for _, r := range results {
		if !r.Accepted || !r.Simulated {
			failed++
		}
		rows = append(rows, fmt.Sprintf("%s | %t | %t | %d | %d | %s",
			r.Name, r.Accepted, r.Simulated, r.FullBytes, r.CompBytes, r.Fingerprint))
	}
	fmt.Fprintln(os.Stdout, common.FormatList(rows))
	if err := m.WriteSnapshot(snapshotPath); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d statements did not verify", failed)
	}
	return nil
}
