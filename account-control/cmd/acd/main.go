package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/account-control/account-control/cmd/acd/daemon"
	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/version"
)

const BinaryName = "acd"

// NewRootCmd creates a new root command for acd. It is called once in the main function.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           BinaryName,
		Short:         fmt.Sprintf("%s - Account Control Daemon.", BinaryName),
		Long:          fmt.Sprintf(`%s runs the reserve ledger, the attestation oracle, redemptions and the watchdogs of a bitcoin backed token.`, BinaryName),
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String(daemon.HomeFlag, config.DefaultAcdDir, "The application home directory")

	return rootCmd
}

func main() {
	cmd := NewRootCmd()

	daemon.AddDaemonCommands(cmd)
	version.AddVersionCommand(cmd, BinaryName)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your acd CLI '%s'", err)
		os.Exit(1) //nolint:gocritic
	}
}
