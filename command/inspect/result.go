package inspect

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/tzstamp/tzstamp/command/helper"
)

type InspectResult struct {
	Proof       string   `json:"proof"`
	State       string   `json:"state"`
	Hash        string   `json:"hash"`
	Derivation  string   `json:"derivation"`
	Operations  []string `json:"operations"`
	Network     string   `json:"network,omitempty"`
	NetworkName string   `json:"networkName,omitempty"`
	Mainnet     bool     `json:"mainnet,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
	BlockHash   string   `json:"blockHash,omitempty"`
	Remote      string   `json:"remote,omitempty"`
}

func (r *InspectResult) GetOutput() string {
	var buffer bytes.Buffer

	kv := []string{
		fmt.Sprintf("Proof|%s", r.Proof),
		fmt.Sprintf("State|%s", r.State),
		fmt.Sprintf("Hash|%s", r.Hash),
		fmt.Sprintf("Derivation|%s", r.Derivation),
	}

	switch r.State {
	case "affixed":
		kv = append(kv,
			fmt.Sprintf("Network|%s (%s)", r.Network, r.NetworkName),
			fmt.Sprintf("Mainnet|%s", strconv.FormatBool(r.Mainnet)),
			fmt.Sprintf("Timestamp|%s", r.Timestamp),
			fmt.Sprintf("Block|%s", r.BlockHash),
		)
	case "unresolved":
		kv = append(kv, fmt.Sprintf("Remote|%s", r.Remote))
	}

	buffer.WriteString("\n[PROOF]\n")
	buffer.WriteString(helper.FormatKV(kv))
	buffer.WriteString("\n\n[OPERATIONS]\n")

	rows := make([]string, 0, len(r.Operations))
	for i, op := range r.Operations {
		rows = append(rows, fmt.Sprintf("%d|%s", i, op))
	}

	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")

	return buffer.String()
}
