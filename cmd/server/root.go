package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sqlpanel/internal/config"
	"sqlpanel/internal/logging"
	"sqlpanel/internal/security"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sqlpanel",
		Short: "Run read-only SQL and publish the result as a chart panel",
		Long: `sqlpanel executes guarded, read-only statements against MySQL-family,
PostgreSQL and ClickHouse databases, infers a chart for the result and publishes
it as a short-lived panel link.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml or ./config.yaml)")

	serve := newServeCmd()
	rootCmd.AddCommand(serve, newCheckCmd(), newTokenCmd(), newVersionCmd())
	rootCmd.RunE = serve.RunE
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(cfgFile)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sqlpanel %s\n", Version)
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		userID   string
		username string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a caller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Security.JWTSecret == "" {
				return fmt.Errorf("security.jwt_secret is not set")
			}
			if ttl <= 0 {
				ttl = cfg.Security.JWTExpiration
			}

			token, err := security.NewJWTManager(cfg.Security.JWTSecret, ttl).GenerateToken(userID, username)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "caller id (required)")
	cmd.Flags().StringVar(&username, "name", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: security.jwt_expiration)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
