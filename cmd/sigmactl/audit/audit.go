package audit

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sigmakit/cmd/sigmactl/common"
	"sigmakit/internal/catalog"
	"sigmakit/internal/codec"
	"sigmakit/internal/config"
	"sigmakit/internal/store"
)

const (
	configFileFlag = "config"
	archiveFlag    = "archive"
	seedFlag       = "seed"
	pruneFlag      = "prune-older-than"
)

var (
	cfgFilePath string
	pruneAfter  time.Duration
	conf        = config.GetDefaultConfig()
)

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Command to re-verify the transcripts in a verdict archive",
		RunE:  runCommand,
	}
	d := config.GetDefaultConfig()
	cmd.Flags().StringVar(&cfgFilePath, configFileFlag, "./sigmactl.json", "Used to specify JSON config file path")
	cmd.Flags().StringVar(&conf.ArchivePath, archiveFlag, "", "Used to specify the verdict archive to audit")
	cmd.Flags().StringVar(&conf.Seed, seedFlag, d.Seed, "Used to specify the seed the statement catalog is derived from")
	cmd.Flags().DurationVar(&pruneAfter, pruneFlag, 0, "Used to drop records older than this after a clean audit")
	return cmd
}

func runCommand(cmd *cobra.Command, _ []string) error {
	c, err := common.LoadConfig(cfgFilePath, conf)
	if err != nil {
		return err
	}
	if c.ArchivePath == "" {
		return fmt.Errorf("required flag missing: %q", archiveFlag)
	}
	if !common.DoesFileExist(c.ArchivePath) {
		return fmt.Errorf("archive %s does not exist", c.ArchivePath)
	}
	entries, err := catalog.New(c.Seed)
	if err != nil {
		return err
	}
	archive := store.New(c.ArchivePath)
	records, err := archive.List()
	if err != nil {
		return err
	}

	results := catalog.Audit(entries, records, codec.LimitsFrom(c))
	rows := []string{"Session | Statement | Recorded | Rechecked | Problem"}
	bad := 0
	for _, r := range results {
		if !r.OK() {
			bad++
		}
		rows = append(rows, fmt.Sprintf("%s | %s | %t | %t | %s", r.SessionID, r.Statement, r.Recorded, r.Rechecked, r.Problem))
	}
	fmt.Fprintln(os.Stdout, common.FormatList(rows))
	if bad > 0 {
		return fmt.Errorf("%d of %d archived sessions failed the audit", bad, len(results))
	}

	if pruneAfter > 0 {
		dropped, err := archive.Prune(time.Now().UTC().Add(-pruneAfter))
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, common.FormatKV([]string{fmt.Sprintf("Pruned|%d", dropped)}))
	}
	return nil
}
