package version

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tzstamp/tzstamp/command"
	"github.com/tzstamp/tzstamp/version"
)

func GetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Returns the current tzstamp version",
		Args:  cobra.NoArgs,
		Run:   runCommand,
	}
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	outputter.SetCommandResult(
		&VersionResult{
			Version:   version.Version,
			Commit:    version.Commit,
			Branch:    version.Branch,
			BuildTime: version.BuildTime,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
	)
}
