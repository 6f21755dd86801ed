package verify

import (
	"bytes"
	"fmt"

	"github.com/tzstamp/tzstamp/command/helper"
)

type VerifyEntry struct {
	Proof     string `json:"proof"`
	Hash      string `json:"hash,omitempty"`
	Status    string `json:"status"`
	Network   string `json:"network,omitempty"`
	BlockHash string `json:"blockHash,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

type VerifyResult struct {
	Entries []*VerifyEntry `json:"entries"`
}

// Verified reports whether every proof was verified
func (r *VerifyResult) Verified() bool {
	for _, e := range r.Entries {
		if e.Status != statusVerified {
			return false
		}
	}

	return true
}

func (r *VerifyResult) GetOutput() string {
	var buffer bytes.Buffer

	rows := make([]string, 0, len(r.Entries)+1)
	rows = append(rows, "Proof|Status|Network|Block|Timestamp")

	for _, e := range r.Entries {
		status := e.Status
		if e.Error != "" {
			status = fmt.Sprintf("%s (%s)", e.Status, e.Error)
		}

		rows = append(rows, fmt.Sprintf("%s|%s|%s|%s|%s", e.Proof, status, e.Network, e.BlockHash, e.Timestamp))
	}

	buffer.WriteString("\n[VERIFICATION]\n")
	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")

	return buffer.String()
}
