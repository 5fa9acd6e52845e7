package daemon

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/util"
)

// CommandInit returns the init command of acd that creates the home directory.
func CommandInit() *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "init",
		Short:   "Initialize an acd home directory.",
		Long:    `Creates a new acd home directory with the default config.`,
		Example: `acd init --home /home/user/.acd --force`,
		Args:    cobra.NoArgs,
		RunE:    runInitCmd,
	}
	cmd.Flags().Bool(forceFlag, false, "Override existing configuration")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	home, err := homePath(cmd)
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool(forceFlag)
	if err != nil {
		return fmt.Errorf("failed to read flag %s: %w", forceFlag, err)
	}

	if util.FileExists(home) && !force {
		return fmt.Errorf("home path %s already exists", home)
	}

	if err := util.MakeDirectory(home); err != nil {
		return err
	}
	if err := util.MakeDirectory(config.LogDir(home)); err != nil {
		return err
	}

	defaultConfig := config.DefaultConfigWithHome(home)

	return config.WriteConfig(home, &defaultConfig)
}
