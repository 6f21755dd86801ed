package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tzstamp/tzstamp/command/helper"
	"github.com/tzstamp/tzstamp/command/inspect"
	"github.com/tzstamp/tzstamp/command/server"
	"github.com/tzstamp/tzstamp/command/stamp"
	"github.com/tzstamp/tzstamp/command/verify"
	"github.com/tzstamp/tzstamp/command/version"
)

type RootCommand struct {
	baseCmd *cobra.Command
}

func NewRootCommand() *RootCommand {
	rootCommand := &RootCommand{
		baseCmd: &cobra.Command{
			Use:           "tzstamp",
			Short:         "tzstamp aggregates hashes into Merkle trees and anchors them on a chain",
			SilenceErrors: true,
		},
	}

	helper.RegisterJSONOutputFlag(rootCommand.baseCmd)
	helper.RegisterLogLevelFlag(rootCommand.baseCmd)

	rootCommand.registerSubCommands()

	return rootCommand
}

func (rc *RootCommand) registerSubCommands() {
	rc.baseCmd.AddCommand(
		version.GetCommand(),
		server.GetCommand(),
		stamp.GetCommand(),
		verify.GetCommand(),
		inspect.GetCommand(),
	)
}

func (rc *RootCommand) Execute() {
	if err := rc.baseCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
