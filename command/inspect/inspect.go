package inspect

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tzstamp/tzstamp/chain"
	"github.com/tzstamp/tzstamp/command"
	"github.com/tzstamp/tzstamp/helper/hex"
	"github.com/tzstamp/tzstamp/proof"
)

const resolveFlag = "resolve"

var params struct {
	resolve bool
}

func GetCommand() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect <proof>",
		Short: "Prints the operations and state of a proof",
		Args:  cobra.ExactArgs(1),
		Run:   runCommand,
	}

	inspectCmd.Flags().BoolVar(
		&params.resolve,
		resolveFlag,
		false,
		"fetch remote continuations before printing",
	)

	return inspectCmd
}

func runCommand(cmd *cobra.Command, args []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	data, err := os.ReadFile(args[0])
	if err != nil {
		outputter.SetError(err)

		return
	}

	p, err := proof.Parse(data)
	if err != nil {
		outputter.SetError(fmt.Errorf("invalid proof: %w", err))

		return
	}

	if params.resolve {
		client := &http.Client{Timeout: 30 * time.Second}

		if p, err = proof.ResolveAll(cmd.Context(), client, p); err != nil {
			outputter.SetError(err)

			return
		}
	}

	outputter.SetCommandResult(newInspectResult(args[0], p))
}

func newInspectResult(path string, p proof.Proof) *InspectResult {
	ops := p.Operations()

	result := &InspectResult{
		Proof:      path,
		Hash:       hex.EncodeToString(p.Hash()),
		Derivation: hex.EncodeToString(p.Derivation()),
		Operations: make([]string, 0, len(ops)),
	}

	for _, op := range ops {
		result.Operations = append(result.Operations, op.String())
	}

	switch p := p.(type) {
	case *proof.Affixed:
		result.State = "affixed"
		result.Network = p.Network()
		result.NetworkName = chain.NetworkName(p.Network())
		result.Mainnet = p.Mainnet()
		result.Timestamp = p.Timestamp().Format(time.RFC3339)
		result.BlockHash = p.BlockHash()
	case *proof.Unresolved:
		result.State = "unresolved"
		result.Remote = p.Remote()
	default:
		result.State = "unaffixed"
	}

	return result
}
