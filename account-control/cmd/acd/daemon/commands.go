package daemon

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/account-control/util"
)

// AddDaemonCommands adds the daemon related commands to cmd.
func AddDaemonCommands(cmd *cobra.Command) {
	cmd.AddCommand(
		CommandInit(),
		CommandStart(),
		CommandReserves(),
		CommandSignAttestation(),
	)
}

// homePath returns the cleaned absolute path of the --home flag.
func homePath(cmd *cobra.Command) (string, error) {
	home, err := cmd.Flags().GetString(HomeFlag)
	if err != nil {
		return "", fmt.Errorf("failed to read flag %s: %w", HomeFlag, err)
	}

	abs, err := filepath.Abs(home)
	if err != nil {
		return "", fmt.Errorf("failed to get home path: %w", err)
	}

	return util.CleanAndExpandPath(abs), nil
}

func printRespJSON(cmd *cobra.Command, resp interface{}) {
	jsonBytes, err := json.MarshalIndent(resp, "", "    ")
	if err != nil {
		cmd.Println("unable to decode response: ", err)
		return
	}

	cmd.Printf("%s\n", jsonBytes)
}
