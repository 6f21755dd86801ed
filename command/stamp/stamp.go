package stamp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/tzstamp/tzstamp/command"
	"github.com/tzstamp/tzstamp/command/helper"
	"github.com/tzstamp/tzstamp/helper/common"
	"github.com/tzstamp/tzstamp/helper/hex"
	"github.com/tzstamp/tzstamp/proof"
)

func GetCommand() *cobra.Command {
	stampCmd := &cobra.Command{
		Use:   "stamp <file|hash>...",
		Short: "Submits file hashes to aggregator servers and saves the proofs next to the files",
		PreRunE: func(_ *cobra.Command, args []string) error {
			return params.validateFlags(args)
		},
		Run: runCommand,
	}

	setFlags(stampCmd)

	return stampCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(
		&params.servers,
		serverFlag,
		[]string{command.DefaultServerURL},
		"the aggregator server to submit to, can be repeated",
	)

	cmd.Flags().BoolVar(
		&params.wait,
		waitFlag,
		false,
		"wait until the proof is affixed to the chain",
	)

	cmd.Flags().DurationVar(
		&params.pollInterval,
		pollIntervalFlag,
		defaultPollInterval,
		"the interval between proof polls when waiting",
	)

	cmd.Flags().DurationVar(
		&params.timeout,
		timeoutFlag,
		defaultTimeout,
		"the maximum time to wait for a proof",
	)

	cmd.Flags().BoolVar(
		&params.overwrite,
		overwriteFlag,
		false,
		"overwrite existing proof files",
	)
}

func runCommand(cmd *cobra.Command, args []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	logger := helper.NewLogger("tzstamp", helper.GetLogLevel(cmd), false)
	s := newStamper(logger, &http.Client{Timeout: requestTimeout}, params.servers)

	result := &StampResult{}

	for _, arg := range args {
		entry, err := s.stamp(cmd.Context(), arg, params)
		if err != nil {
			outputter.SetError(err)

			return
		}

		result.Entries = append(result.Entries, entry)
	}

	outputter.SetCommandResult(result)
}

// stamp submits a single input and writes its proof file
func (s *stamper) stamp(ctx context.Context, arg string, p *stampParams) (*StampEntry, error) {
	in, err := readInput(arg)
	if err != nil {
		return nil, err
	}

	proofs, err := s.submitAll(ctx, in.hash)
	if err != nil {
		return nil, err
	}

	var (
		result proof.Proof = proofs[0]
		status             = statusPending
	)

	if p.wait {
		if result, err = s.await(ctx, proofs, p.pollInterval, p.timeout); err != nil {
			return nil, fmt.Errorf("failed to wait for the proof of %s: %w", arg, err)
		}

		status = statusResolved
		if _, ok := result.(*proof.Affixed); ok {
			status = statusAffixed
		}
	}

	path := proofPath(in)

	data, err := proof.Marshal(result)
	if err != nil {
		return nil, err
	}

	if err := common.SaveFileSafe(path, data, 0644, p.overwrite); err != nil {
		return nil, fmt.Errorf("failed to save proof for %s: %w", arg, err)
	}

	entry := &StampEntry{
		Input:  arg,
		Hash:   hex.EncodeToString(in.hash),
		Proof:  path,
		Status: status,
	}

	if unresolved, ok := result.(*proof.Unresolved); ok {
		entry.Remote = unresolved.Remote()
	}

	return entry, nil
}

func proofPath(in *input) string {
	if in.file {
		return helper.ProofFileName(in.name)
	}

	return helper.ProofFileName(hex.EncodeToString(in.hash))
}
