// Copyright © 2013-2018 Pierre Neidhardt <ambrevar@gmail.com>
// Use of this file is governed by the license that can be found in LICENSE.

// Command musfused loads configuration, constructs an AppContext, and
// drives the mount provider contract (spec §10.4). It does not
// implement a platform shim; serve runs the dry-run provider so the
// core can be exercised without FUSE/WinFSP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ambrevar/musfuse/internal/app"
	"github.com/ambrevar/musfuse/internal/config"
	"github.com/ambrevar/musfuse/internal/logging"
	"github.com/ambrevar/musfuse/internal/mount"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "musfused",
		Short: "MusFuse virtual music filesystem daemon",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var sourceDirs []string
	var kvPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Mount the virtual layer and block until signaled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Flags(), sourceDirs, kvPath)
		},
	}
	cmd.Flags().StringSliceVar(&sourceDirs, "source-dir", nil, "source directory to scan (repeatable)")
	cmd.Flags().StringVar(&kvPath, "kv-path", "", "embedded KV file path")
	return cmd
}

func serve(fs *pflag.FlagSet, sourceDirs []string, kvPath string) error {
	cfg, err := config.Load(configPath, fs)
	if err != nil {
		return err
	}
	if len(sourceDirs) > 0 {
		cfg.SourceDirs = sourceDirs
	}
	if kvPath != "" {
		cfg.KVPath = kvPath
	}

	base, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer base.Sync()
	logger := logging.Component(base, "musfused")

	appCtx, err := app.New(cfg, base)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	provider := mount.NewDryRunProvider()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := provider.PrepareEnvironment(ctx); err != nil {
		return fmt.Errorf("prepare_environment: %w", err)
	}
	if err := provider.Mount(ctx, cfg, appCtx); err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	logger.Infow("mounted", "source_dirs", cfg.SourceDirs)

	go logEvents(logger, provider)

	<-ctx.Done()
	logger.Info("shutting down")
	return provider.Unmount(context.Background())
}

func logEvents(logger interface{ Infow(string, ...interface{}) }, provider mount.Provider) {
	for ev := range provider.Events() {
		if ev.Reason != "" {
			logger.Infow("mount event", "kind", ev.Kind, "reason", ev.Reason)
			continue
		}
		logger.Infow("mount event", "kind", ev.Kind)
	}
}
