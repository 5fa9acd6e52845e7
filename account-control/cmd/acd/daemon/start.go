package daemon

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/account-control/service"
	"github.com/babylonlabs-io/account-control/log"
)

// CommandStart returns the start command of acd.
func CommandStart() *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "start",
		Short:   "Start the account control daemon.",
		Long:    `Start the account control app and run its background loops until interrupted.`,
		Example: `acd start --home /home/user/.acd`,
		Args:    cobra.NoArgs,
		RunE:    runStartCmd,
	}
	cmd.Flags().String(logLevelFlag, "", "Override the log level of the config")
	cmd.Flags().Int(metricsPortFlag, 0, "Override the port of the metrics server")
	cmd.Flags().String(relayModeFlag, "", "Override the relay mode of the config (static or bitcoind)")

	return cmd
}

// loadConfig reads the config under the home flag and applies the start
// flags that were set on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	home, err := homePath(cmd)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.LoadConfig(home)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := FillConfigFromFlags(cfg, cmd.Flags()); err != nil {
		return nil, "", err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, home, nil
}

// FillConfigFromFlags overwrites config values with the override flags that
// were set. Flags have preference over the config file.
func FillConfigFromFlags(cfg *config.Config, flagSet *pflag.FlagSet) error {
	var err error

	if flagSet.Changed(logLevelFlag) {
		if cfg.LogLevel, err = flagSet.GetString(logLevelFlag); err != nil {
			return fmt.Errorf("failed to read flag %s: %w", logLevelFlag, err)
		}
	}
	if flagSet.Changed(metricsPortFlag) {
		if cfg.Metrics.Port, err = flagSet.GetInt(metricsPortFlag); err != nil {
			return fmt.Errorf("failed to read flag %s: %w", metricsPortFlag, err)
		}
	}
	if flagSet.Changed(relayModeFlag) {
		if cfg.BitcoinConfig.RelayMode, err = flagSet.GetString(relayModeFlag); err != nil {
			return fmt.Errorf("failed to read flag %s: %w", relayModeFlag, err)
		}
	}

	return nil
}

func runStartCmd(cmd *cobra.Command, _ []string) error {
	cfg, home, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := log.NewRootLoggerWithFile(config.LogFile(home), cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize the logger: %w", err)
	}

	dbBackend, err := cfg.DatabaseConfig.GetDBBackend()
	if err != nil {
		return fmt.Errorf("failed to create db backend: %w", err)
	}
	defer func() {
		if err := dbBackend.Close(); err != nil {
			logger.Error(fmt.Sprintf("failed to close the database: %v", err))
		}
	}()

	app, err := service.NewAccountControlAppFromConfig(cfg, dbBackend, logger)
	if err != nil {
		return fmt.Errorf("failed to create account control app: %w", err)
	}

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start the account control app: %w", err)
	}

	<-cmd.Context().Done()
	logger.Info("received shutdown signal")

	return app.Stop()
}
