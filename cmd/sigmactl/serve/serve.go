package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sigmakit/cmd/sigmactl/common"
	"sigmakit/internal/admin"
	"sigmakit/internal/catalog"
	"sigmakit/internal/codec"
	"sigmakit/internal/config"
	"sigmakit/internal/debuglog"
	"sigmakit/internal/metrics"
	"sigmakit/internal/network"
	"sigmakit/internal/store"
)

const (
	configFileFlag  = "config"
	listenAddrFlag  = "listen"
	metricsAddrFlag = "metrics-addr"
	seedFlag        = "seed"
	snapshotFlag    = "snapshot"
	archiveFlag     = "archive"
	debugFlag       = "debug"
)

var cfgFilePath string
var snapshotPath string
var conf = config.GetDefaultConfig()

func GetCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "serve",
		Short: "Command to verify catalog statements over QUIC",
		RunE:  runCommand,
	}

	setFlags(cmd)

	return cmd
}

func setFlags(cmd *cobra.Command) {
	d := config.GetDefaultConfig()
	cmd.Flags().StringVar(
		&cfgFilePath,
		configFileFlag,
		"./sigmactl.json",
		"Used to specify JSON config file path",
	)
	cmd.Flags().StringVar(
		&conf.ListenAddr,
		listenAddrFlag,
		d.ListenAddr,
		"Used to specify the QUIC listen address",
	)
	cmd.Flags().StringVar(
		&conf.MetricsAddr,
		metricsAddrFlag,
		"",
		"Used to specify the loopback address for /metrics and /debug/pprof",
	)
	cmd.Flags().StringVar(
		&conf.Seed,
		seedFlag,
		d.Seed,
		"Used to specify the seed the statement catalog is derived from",
	)
	cmd.Flags().BoolVar(
		&conf.Debug,
		debugFlag,
		d.Debug,
		"Used to enable debug logging",
	)
	cmd.Flags().StringVar(
		&conf.ArchivePath,
		archiveFlag,
		"",
		"Used to specify the JSON-lines file decided sessions are archived to",
	)
	cmd.Flags().StringVar(
		&snapshotPath,
		snapshotFlag,
		"",
		"Used to specify where the metrics snapshot is written on exit",
	)
}

func runCommand(cmd *cobra.Command, _ []string) error {
	c, err := common.LoadConfig(cfgFilePath, conf)
	if err != nil {
		return err
	}
	if c.Debug {
		debuglog.Enable()
	}

	entries, err := catalog.New(c.Seed)
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}
	statements := make(map[string]network.Statement, len(entries))
	for _, e := range entries {
		statements[e.Name] = network.Statement{Protocol: e.Protocol, Input: e.Input}
	}

	m := metrics.New()
	if c.MetricsAddr != "" {
		adm, err := admin.Start(c.MetricsAddr, m)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = adm.Close(ctx)
		}()
	}

	opts := []network.ServerOption{
		network.WithLimits(codec.LimitsFrom(c)),
		network.WithMetrics(m),
	}
	if c.ArchivePath != "" {
		opts = append(opts, network.WithArchive(store.New(c.ArchivePath)))
	}
	srv := network.NewServer(statements, opts...)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ready := make(chan string, 1)
	go func() {
		addr, ok := <-ready
		if !ok {
			return
		}
		banner(os.Stderr, c, addr, catalog.Names(entries))
		log.WithFields(log.Fields{
			"addr":       addr,
			"statements": len(entries),
		}).Info("sigmactl serving")
	}()

	err = srv.ListenAndServe(ctx, c.ListenAddr, ready)
	if werr := m.WriteSnapshot(snapshotPath); werr != nil {
		log.WithError(werr).Error("writing metrics snapshot")
	}
	return err
}
