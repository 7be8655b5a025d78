package main

// this is cmd/root_cmd.go

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/coverhub/coverhub/config"
	"github.com/coverhub/coverhub/pkg/agentloop"
	"github.com/coverhub/coverhub/pkg/global"
	"github.com/coverhub/coverhub/pkg/lumber"
	"github.com/coverhub/coverhub/pkg/requestutils"
	"github.com/coverhub/coverhub/pkg/transport"
)

// RootCommand will setup and return the root command
func RootCommand() *cobra.Command {
	rootCmd := cobra.Command{
		Use:     "coverhub-agent",
		Long:    `coverhub-agent periodically publishes the coverage of an instrumented process`,
		Version: global.BinaryVersion,
		Run:     run,
	}

	// define flags used for this command
	if err := AttachCLIFlags(&rootCmd); err != nil {
		fmt.Println("Error in attaching cli flags")
	}

	return &rootCmd
}

func run(cmd *cobra.Command, args []string) {
	// create a context that we can cancel
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// timeout in seconds
	const gracefulTimeout = 5000 * time.Millisecond

	// a WaitGroup for the goroutines to tell us they've stopped
	wg := sync.WaitGroup{}

	cfg, err := config.LoadAgentConfig(cmd)
	if err != nil {
		fmt.Printf("[Error] Failed to load config: " + err.Error())
		os.Exit(1)
	}

	// patch logconfig file location with root level log file location
	if cfg.LogFile != "" {
		cfg.LogConfig.FileLocation = filepath.Join(cfg.LogFile, "coverhub-agent.log")
	}

	// You can also use logrus implementation
	// by using lumber.InstanceLogrusLogger
	logger, err := lumber.NewLogger(cfg.LogConfig, cfg.Verbose, lumber.InstanceZapLogger)
	if err != nil {
		log.Fatalf("Could not instantiate logger %s", err.Error())
	}

	if cfg.Repo == "" || cfg.Commit == "" || cfg.Endpoint == "" || cfg.CoverageFile == "" {
		logger.Fatalf("repo, commit, endpoint and coverageFile must all be configured")
	}

	requests := requestutils.New(logger, global.DefaultHTTPTimeout, backoff.NewExponentialBackOff())
	publisher, err := transport.New(cfg.Endpoint, requests, logger)
	if err != nil {
		logger.Fatalf("failed to initialize publisher for %s: %v", cfg.Endpoint, err)
	}
	defer publisher.Close()

	provider := &agentloop.FileProvider{Path: cfg.CoverageFile, Format: cfg.CoverageFormat}
	state := agentloop.NewStateStore(cfg.FingerprintFile)
	runner := agentloop.New(cfg, provider, publisher, state, logger)

	logger.Infof("CoverHub agent version: %s", global.BinaryVersion)

	wg.Add(1)
	go func() {
		defer cancel()
		defer wg.Done()
		if err := runner.Run(ctx); err != nil {
			logger.Errorf("agent loop exited: %v", err)
		}
	}()

	// listen for C-c
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// create channel to mark status of waitgroup
	// this is required to brutally kill application in case of
	// timeout
	done := make(chan struct{})

	// asynchronously wait for all the go routines
	go func() {
		// and wait for all go routines
		wg.Wait()
		logger.Debugf("main: all goroutines have finished.")
		close(done)
	}()

	// wait for signal channel
	select {
	case <-c:
		{
			logger.Debugf("main: received C-c - attempting graceful shutdown ....")
			// tell the goroutines to stop
			logger.Debugf("main: telling goroutines to stop")
			cancel()
			select {
			case <-done:
				logger.Debugf("Go routines exited within timeout")
			case <-time.After(gracefulTimeout):
				logger.Errorf("Graceful timeout exceeded. Brutally killing the application")
			}
		}
	case <-done:
		os.Exit(0)
	}
}
