package version

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AddVersionCommand registers the version command on cmd.
func AddVersionCommand(cmd *cobra.Command, binaryName string) {
	cmd.AddCommand(CommandVersion(binaryName))
}

// CommandVersion prints cmd version
func CommandVersion(binaryName string) *cobra.Command {
	var cmd = &cobra.Command{
		Use:     "version",
		Short:   "Prints version of this binary.",
		Aliases: []string{"v"},
		Example: fmt.Sprintf("%s version", binaryName),
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Print(versionString())
		},
	}

	return cmd
}

func versionString() string {
	info := Info()
	commit := info.Commit
	if info.Modified {
		commit += "-dirty"
	}

	var sb strings.Builder
	_, _ = sb.WriteString("Version:       " + info.Version + "\n")
	_, _ = sb.WriteString("Git Commit:    " + commit + "\n")
	_, _ = sb.WriteString("Git Timestamp: " + info.Timestamp + "\n")

	return sb.String()
}
