package verify

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/tzstamp/tzstamp/command"
	"github.com/tzstamp/tzstamp/command/helper"
	"github.com/tzstamp/tzstamp/rpc"
)

var errNotVerified = errors.New("one or more proofs could not be verified")

func GetCommand() *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify <proof>...",
		Short: "Resolves proofs and verifies them against a chain node",
		PreRunE: func(_ *cobra.Command, args []string) error {
			return params.validateFlags(args)
		},
		RunE: runCommand,
	}

	setFlags(verifyCmd)

	return verifyCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.rpcURL,
		rpcFlag,
		command.DefaultRPCURL,
		"the chain node used to look up block headers",
	)

	cmd.Flags().StringVar(
		&params.target,
		targetFlag,
		"",
		"the file or hex hash the proof must commit to. "+
			"Defaults to the stamped file next to the proof, if present",
	)

	cmd.Flags().IntVar(
		&params.concurrency,
		concurrencyFlag,
		4,
		"the maximum number of proofs verified at once",
	)
}

func runCommand(cmd *cobra.Command, args []string) error {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	logger := helper.NewLogger("tzstamp", helper.GetLogLevel(cmd), false)
	httpClient := &http.Client{Timeout: requestTimeout}

	node, err := rpc.NewClient(params.rpcURL, rpc.WithHTTPClient(httpClient), rpc.WithLogger(logger))
	if err != nil {
		outputter.SetError(err)

		return nil
	}

	v := &verifier{
		logger:  logger.Named("verify"),
		client:  httpClient,
		fetcher: node,
	}

	result := &VerifyResult{
		Entries: v.verifyAll(cmd.Context(), args, params.target, params.concurrency),
	}

	outputter.SetCommandResult(result)

	if !result.Verified() {
		cmd.SilenceUsage = true

		return errNotVerified
	}

	return nil
}
