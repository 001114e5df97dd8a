package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tglink/internal/app"
	"tglink/internal/deeplink"
	"tglink/internal/resolver"
	"tglink/internal/shared/logger"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the proxy checker and the settings store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			appServer, err := app.NewForPC(cfg, iniPath())
			if err != nil {
				return err
			}
			if err := appServer.Start(); err != nil {
				return err
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			sig := <-quit
			logger.Info().Str("signal", sig.String()).Msg("Shutting down...")

			appServer.Stop()
			appServer.Wait()
			return nil
		},
	}
}

func newResolveCommand() *cobra.Command {
	var timeout time.Duration
	var install bool

	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Resolve a link to its final target and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// 一次性命令不需要 Web API
			cfg.WebConf.Port = 0

			appServer, err := app.NewForPC(cfg, iniPath())
			if err != nil {
				return err
			}
			defer appServer.Stop()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			result, err := appServer.ResolveURL(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve %q: %w", args[0], err)
			}

			if p, ok := result.(resolver.Proxy); ok && install {
				if err := appServer.InstallProxy(ctx, p); err != nil {
					return err
				}
			}
			return printJSON(cmd, resolver.Encode(result))
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up after this long")
	cmd.Flags().BoolVar(&install, "install", false, "Save and activate the server when the link is a proxy link")
	return cmd
}

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <url>",
		Short: "Classify a link without any lookups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, resolver.Encode(deeplink.Classify(args[0])))
		},
	}
}

func newProxyLinkCommand() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "proxy-link <host> <port>",
		Short: "Print a shareable proxy link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.ParseInt(args[1], 10, 32)
			if err != nil || port <= 0 || port > 65535 {
				return fmt.Errorf("invalid port %q", args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), deeplink.ProxyLink(deeplink.ProxyReference{
				Host:     args[0],
				Port:     int32(port),
				Username: user,
				Password: pass,
			}))
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "Proxy username")
	cmd.Flags().StringVar(&pass, "pass", "", "Proxy password")
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
