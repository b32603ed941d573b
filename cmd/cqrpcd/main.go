// Package main is the cqserve demo application entrypoint.
package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cqserve/cqserve/internal/app/apps"
	"github.com/cqserve/cqserve/internal/app/cfg"
	"github.com/cqserve/cqserve/internal/pkg/log"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

var (
	port     uint16
	logLevel string

	rootCmd = &cobra.Command{
		Use:           "cqrpcd",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			log.SetLogger(logLevel)
			return nil
		},
	}

	serverCmd = &cobra.Command{
		Use:   "server",
		Short: "Starts a cqserve demo server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := apps.NewServerApp(cfg.NewPortCfg(port))
			if err != nil {
				return errors.Wrap(err, "new server app failed")
			}
			return app.Run(cmd.Context(), args)
		},
	}

	clientCmd = &cobra.Command{
		Use:   "client",
		Short: "Runs the demo client against a cqserve server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := apps.NewClientApp(cfg.NewPortCfg(port))
			if err != nil {
				return errors.Wrap(err, "new client app failed")
			}
			return app.Run(cmd.Context(), args)
		},
	}

	publishCmd = &cobra.Command{
		Use:   "publish",
		Short: "Periodically publishes counter values into a running server's fan-out stream.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := apps.NewPublishApp(cfg.NewPortCfg(port))
			if err != nil {
				return errors.Wrap(err, "new publish app failed")
			}
			return app.Run(cmd.Context(), args)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().Uint16Var(&port, "port", apps.DefaultPort, "server listening port")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(serverCmd, clientCmd, publishCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Fatal(errors.Wrap(err, "execute root command failed"))
	}
}
