package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tzstamp/tzstamp/aggregator"
	"github.com/tzstamp/tzstamp/command"
	"github.com/tzstamp/tzstamp/command/helper"
	"github.com/tzstamp/tzstamp/command/server/config"
	"github.com/tzstamp/tzstamp/devchain"
	"github.com/tzstamp/tzstamp/helper/common"
	"github.com/tzstamp/tzstamp/server"
	"github.com/tzstamp/tzstamp/storage"
)

func GetCommand() *cobra.Command {
	serverCmd := &cobra.Command{
		Use:     "server",
		Short:   "Starts the aggregation server, anchoring batches of hashes on every interval",
		Args:    cobra.NoArgs,
		PreRunE: runPreRun,
		RunE:    runCommand,
	}

	setFlags(serverCmd)

	return serverCmd
}

func setFlags(cmd *cobra.Command) {
	defaultConfig := config.DefaultConfig()

	cmd.Flags().StringVar(
		&params.configPath,
		configFlag,
		"",
		"the path to the server config. Supports .json, .hcl and .yaml",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.DataDir,
		dataDirFlag,
		defaultConfig.DataDir,
		"the data directory used for storing proofs and batches",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.Addr,
		addrFlag,
		defaultConfig.Addr,
		"the address and port the HTTP API listens on",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.BaseURL,
		baseURLFlag,
		defaultConfig.BaseURL,
		"the public url under which proofs are served",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.Network,
		networkFlag,
		defaultConfig.Network,
		"the network identifier of the dev chain. Defaults to a derived dev network",
	)

	cmd.Flags().StringVar(
		&params.rawConfig.Interval,
		intervalFlag,
		defaultConfig.Interval,
		"the length of an aggregation epoch",
	)

	cmd.Flags().BoolVar(
		&params.rawConfig.Deduplicate,
		deduplicateFlag,
		defaultConfig.Deduplicate,
		"drop hashes already submitted in the current epoch",
	)

	cmd.Flags().Uint64Var(
		&params.rawConfig.PublishRetries,
		publishRetriesFlag,
		defaultConfig.PublishRetries,
		"the number of retries after a failed publish",
	)

	cmd.Flags().BoolVar(
		&params.rawConfig.JSONLogFormat,
		logJSONFlag,
		defaultConfig.JSONLogFormat,
		"write logs in json format",
	)

	cmd.Flags().StringArrayVar(
		&params.rawConfig.CorsAllowedOrigins,
		corsOriginFlag,
		defaultConfig.CorsAllowedOrigins,
		"the CORS header indicating whether any response can be shared with the specified origin",
	)

	cmd.Flags().BoolVar(
		&params.rawConfig.Dev,
		devFlag,
		defaultConfig.Dev,
		"anchor batches on the in-process dev chain",
	)

	cmd.Flags().BoolVar(
		&params.rawConfig.Prometheus,
		prometheusFlag,
		defaultConfig.Prometheus,
		"serve prometheus metrics under /metrics",
	)
}

func runPreRun(cmd *cobra.Command, _ []string) error {
	changed := func(name string) bool {
		flag := cmd.Flag(name)

		return flag != nil && flag.Changed
	}

	if changed(configFlag) {
		if err := params.initConfigFromFile(changed); err != nil {
			return err
		}
	}

	if changed(command.LogLevelFlag) || !changed(configFlag) {
		params.rawConfig.LogLevel = helper.GetLogLevel(cmd)
	}

	return params.validateFlags()
}

func runCommand(cmd *cobra.Command, _ []string) error {
	cfg := params.rawConfig
	logger := helper.NewLogger("tzstamp", cfg.LogLevel, cfg.JSONLogFormat)

	if err := common.SetupDataDir(cfg.DataDir, nil); err != nil {
		return err
	}

	if cfg.Prometheus {
		if _, err := server.SetupTelemetry("tzstamp"); err != nil {
			return fmt.Errorf("failed to set up telemetry: %w", err)
		}
	}

	store, err := storage.NewBoltStore(filepath.Join(cfg.DataDir, storeFileName))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	var chainOpts []devchain.Option
	if cfg.Network != "" {
		chainOpts = append(chainOpts, devchain.WithNetwork(cfg.Network))
	}

	devChain, err := devchain.New(logger, chainOpts...)
	if err != nil {
		return err
	}
	defer devChain.Close()

	agg, err := aggregator.NewAggregator(
		logger,
		&aggregator.Config{
			BaseURL:        cfg.BaseURL,
			Interval:       params.interval,
			Deduplicate:    cfg.Deduplicate,
			PublishRetries: cfg.PublishRetries,
			RetryDelay:     aggregator.DefaultRetryDelay,
		},
		devChain,
		store,
	)
	if err != nil {
		return err
	}

	srv := server.NewServer(
		logger,
		&server.Config{
			Addr:                     cfg.Addr,
			AccessControlAllowOrigin: cfg.CorsAllowedOrigins,
			MaxBodySize:              server.DefaultMaxBodySize,
			Network:                  devChain.Network(),
			Metrics:                  cfg.Prometheus,
		},
		agg,
		store,
	)
	srv.Mount("/chains/", devChain.Handler())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stopCh := common.GetTerminationSignalCh()
	g := errgroup.Group{}

	// waits for os.Signal to cancel the context
	g.Go(func() error {
		select {
		case <-stopCh:
			logger.Info("termination signal received")
			cancel()
		case <-ctx.Done():
		}

		return nil
	})

	g.Go(func() error {
		cmd.Printf("API server is listening on %s...\n", cfg.Addr)

		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			cmd.PrintErrf("API server has been terminated with an error = %v\n", err)
			cancel()

			return err
		}

		cmd.Printf("API server has been terminated\n")

		return nil
	})

	g.Go(func() error {
		err := agg.Start(ctx)
		cmd.Printf("Aggregator has been terminated\n")

		// a final cycle anchors what was submitted since the last epoch
		if agg.Size() > 0 {
			if _, cycleErr := agg.Cycle(context.Background()); cycleErr != nil {
				logger.Error("final cycle failed", "err", cycleErr)
			}
		}

		if shutdownErr := srv.Shutdown(context.Background()); shutdownErr != nil {
			return shutdownErr
		}

		return err
	})

	return g.Wait()
}
