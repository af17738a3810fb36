package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/orbit/pkg/agentclient"
	"github.com/cuemby/orbit/pkg/api"
	"github.com/cuemby/orbit/pkg/business"
	"github.com/cuemby/orbit/pkg/config"
	"github.com/cuemby/orbit/pkg/liveness"
	"github.com/cuemby/orbit/pkg/log"
	"github.com/cuemby/orbit/pkg/metrics"
	"github.com/cuemby/orbit/pkg/metricscache"
	"github.com/cuemby/orbit/pkg/store"
)

var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "Run the Manager: node registry, scheduler and business lifecycle",
	RunE:  runManager,
}

func init() {
	managerCmd.Flags().String("config", "", "Path to a manager config JSON file")
	managerCmd.Flags().String("addr", "", "Override api_addr from config")
	managerCmd.Flags().String("db-path", "", "Override db_path from config")
}

func runManager(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadManagerConfig(configPath)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.APIAddr = addr
	}
	if dbPath, _ := cmd.Flags().GetString("db-path"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	logger := log.WithComponent("manager")

	st, err := store.NewBoltStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	cache := metricscache.New()
	agents := agentclient.New()
	biz := business.New(st, cache, agents)

	live := liveness.New(st)
	live.Start()
	defer live.Stop()

	metricsCollector := metrics.NewCollector(st)
	metricsCollector.Start()
	defer metricsCollector.Stop()

	metrics.SetVersion(Version)
	metrics.RegisterComponent("store", true, "ready")
	metrics.RegisterComponent("api", false, "starting")

	srv := api.NewServer(cfg.APIAddr, st, cache, biz)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()
	time.Sleep(200 * time.Millisecond)
	metrics.RegisterComponent("api", true, "ready")

	logger.Info().Str("addr", cfg.APIAddr).Str("db", cfg.DBPath).Msg("manager started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("api server error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	return nil
}
