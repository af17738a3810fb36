package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/orbit/pkg/agent"
	"github.com/cuemby/orbit/pkg/config"
	"github.com/cuemby/orbit/pkg/executor"
	"github.com/cuemby/orbit/pkg/log"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the Agent: telemetry push and component lifecycle on this host",
	RunE:  runAgent,
}

func init() {
	agentCmd.Flags().String("config", "", "Path to an agent config JSON file")
	agentCmd.Flags().String("manager", "", "Override manager_url from config")
	agentCmd.Flags().String("listen", "", "Override listen_addr from config")
	agentCmd.Flags().Int("interval", 0, "Override interval_sec from config")
}

func runAgent(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAgentConfig(configPath)
	if err != nil {
		return err
	}
	if manager, _ := cmd.Flags().GetString("manager"); manager != "" {
		cfg.ManagerURL = manager
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.ListenAddr = listen
	}
	if interval, _ := cmd.Flags().GetInt("interval"); interval > 0 {
		cfg.IntervalSec = interval
	}

	logger := log.WithComponent("agent")

	dockerExec, err := executor.NewDocker(filepath.Join(cfg.DataDir, "containers"))
	if err != nil {
		logger.Warn().Err(err).Msg("docker unavailable, docker-type components will fail to deploy")
		dockerExec = nil
	}
	processExec := executor.NewProcess(filepath.Join(cfg.DataDir, "processes"))

	a := agent.New(agent.Config{
		ManagerURL:       cfg.ManagerURL,
		Hostname:         cfg.Hostname,
		NetworkInterface: cfg.NetworkInterface,
		DataDir:          cfg.DataDir,
		Port:             cfg.Port,
		IntervalSec:      cfg.IntervalSec,
	}, dockerExec, processExec)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Register(ctx); err != nil {
		return err
	}

	cmdSrv := agent.NewServer(cfg.ListenAddr, a)
	errCh := make(chan error, 1)
	go func() {
		if err := cmdSrv.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	go a.Run(context.Background())

	logger.Info().Str("node_id", a.NodeID()).Str("listen", cfg.ListenAddr).Str("manager", cfg.ManagerURL).Msg("agent started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("command server error")
	}

	a.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return cmdSrv.Shutdown(shutdownCtx)
}
