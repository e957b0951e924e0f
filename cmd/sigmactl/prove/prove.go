package prove

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sigmakit/cmd/sigmactl/common"
	"sigmakit/internal/catalog"
	"sigmakit/internal/codec"
	"sigmakit/internal/config"
	"sigmakit/internal/debuglog"
	"sigmakit/internal/network"
)

const (
	configFileFlag = "config"
	addrFlag       = "addr"
	statementFlag  = "statement"
	insecureFlag   = "insecure"
	caFlag         = "ca"
	seedFlag       = "seed"
	countFlag      = "count"
	debugFlag      = "debug"

	allStatements = "all"
)

var (
	cfgFilePath string
	addr        string
	statement   string
	insecure    bool
	caPath      string
	count       int
	conf        = config.GetDefaultConfig()
)

func GetCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "prove",
		Short: "Command to prove catalog statements to a verifier",
		RunE:  runCommand,
	}

	setFlags(cmd)

	return cmd
}

func setFlags(cmd *cobra.Command) {
	d := config.GetDefaultConfig()
	cmd.Flags().StringVar(&cfgFilePath, configFileFlag, "./sigmactl.json", "Used to specify JSON config file path")
	cmd.Flags().StringVar(&addr, addrFlag, d.ListenAddr, "Used to specify the verifier address")
	cmd.Flags().StringVar(&statement, statementFlag, allStatements, "Used to specify the statement to prove, or 'all'")
	cmd.Flags().BoolVar(&insecure, insecureFlag, false, "Used to skip verifier certificate checks")
	cmd.Flags().StringVar(&caPath, caFlag, "", "Used to specify the PEM file of the verifier certificate")
	cmd.Flags().StringVar(&conf.Seed, seedFlag, d.Seed, "Used to specify the seed the statement catalog is derived from")
	cmd.Flags().IntVar(&count, countFlag, 1, "Used to specify how many sessions to run per statement")
	cmd.Flags().BoolVar(&conf.Debug, debugFlag, d.Debug, "Used to enable debug logging")
}

func runCommand(cmd *cobra.Command, _ []string) error {
	c, err := common.LoadConfig(cfgFilePath, conf)
	if err != nil {
		return err
	}
	if c.Debug {
		debuglog.Enable()
	}
	if count <= 0 {
		return fmt.Errorf("count must be positive, got %d", count)
	}

	entries, err := catalog.New(c.Seed)
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}
	selected, err := selectEntries(entries, statement)
	if err != nil {
		return err
	}

	client, err := network.NewClient(insecure, caPath, codec.LimitsFrom(c), nil)
	if err != nil {
		return err
	}
	defer client.Close()

	var buffer bytes.Buffer
	failed := 0
	for _, e := range selected {
		for i := 0; i < count; i++ {
			// nonces must be fresh per run, never drawn from the catalog seed
			v, err := client.Prove(cmd.Context(), addr, e.Name, e.Protocol, e.Input, e.Secret, rand.Reader)
			if err != nil {
				log.WithError(err).WithField("statement", e.Name).Error("prove failed")
				failed++
				continue
			}
			if !v.Accepted {
				failed++
			}
			buffer.WriteString(fmt.Sprintf("\n[%s]\n", strings.ToUpper(e.Name)))
			buffer.WriteString(common.FormatKV([]string{
				fmt.Sprintf("Session|%s", v.SessionID),
				fmt.Sprintf("Accepted|%t", v.Accepted),
				fmt.Sprintf("Fingerprint|%s", v.Fingerprint),
			}))
			buffer.WriteString("\n")
		}
	}
	fmt.Fprint(os.Stdout, buffer.String())
	if failed > 0 {
		return fmt.Errorf("%d of %d sessions failed", failed, len(selected)*count)
	}
	return nil
}

func selectEntries(entries []catalog.Entry, name string) ([]catalog.Entry, error) {
	if name == allStatements {
		return entries, nil
	}
	e, ok := catalog.Find(entries, name)
	if !ok {
		return nil, fmt.Errorf("unknown statement %q, have %s", name, strings.Join(catalog.Names(entries), ", "))
	}
	return []catalog.Entry{e}, nil
}
