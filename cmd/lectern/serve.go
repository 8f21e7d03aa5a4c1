package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hollisk/lectern/internal/alerts"
	"github.com/hollisk/lectern/internal/alerts/discord"
	"github.com/hollisk/lectern/internal/alerts/slack"
	"github.com/hollisk/lectern/internal/config"
	"github.com/hollisk/lectern/internal/live"
	"github.com/hollisk/lectern/internal/server"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Lectern API server",
		Long:  "Serves the discussion API and SSE event stream, with optional chat alert bridges.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "lectern.yaml", "path to Lectern config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	hub := live.NewHub()

	if err := startAlerts(ctx, cfg, gormDB, hub); err != nil {
		return err
	}

	return server.Start(ctx, server.StartOpts{
		DB:   gormDB,
		Hub:  hub,
		Port: port,
		Out:  cmd.OutOrStdout(),
	})
}

// startAlerts wires the configured chat bridges to the hub. A config with
// no tokens runs no bridge goroutines at all.
func startAlerts(ctx context.Context, cfg *config.Config, gormDB *gorm.DB, hub *live.Hub) error {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Token != "" {
		n, err := slack.New(slack.Opts{
			Token:   cfg.Alerts.Slack.Token,
			Channel: cfg.Alerts.Slack.Channel,
		})
		if err != nil {
			return err
		}
		notifiers = append(notifiers, n)
	}
	if cfg.Alerts.Discord.Token != "" {
		n, err := discord.New(discord.Opts{
			Token:   cfg.Alerts.Discord.Token,
			Channel: cfg.Alerts.Discord.Channel,
		})
		if err != nil {
			return err
		}
		notifiers = append(notifiers, n)
	}
	if len(notifiers) == 0 {
		return nil
	}

	watcher, err := alerts.NewWatcher(alerts.WatcherOpts{
		DB:        gormDB,
		Hub:       hub,
		Notifiers: notifiers,
	})
	if err != nil {
		return err
	}
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("alerts watcher stopped: %v", err)
		}
	}()
	go func() {
		if err := watcher.RunDigest(ctx, cfg.Alerts.DigestCron); err != nil && ctx.Err() == nil {
			log.Printf("alerts digest stopped: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		for _, n := range notifiers {
			n.Close()
		}
	}()
	return nil
}
