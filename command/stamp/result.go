package stamp

import (
	"bytes"
	"fmt"

	"github.com/tzstamp/tzstamp/command/helper"
)

const (
	statusPending  = "pending"
	statusAffixed  = "affixed"
	statusResolved = "resolved"
)

type StampEntry struct {
	Input  string `json:"input"`
	Hash   string `json:"hash"`
	Proof  string `json:"proof"`
	Status string `json:"status"`
	Remote string `json:"remote,omitempty"`
}

type StampResult struct {
	Entries []*StampEntry `json:"entries"`
}

func (r *StampResult) GetOutput() string {
	var buffer bytes.Buffer

	rows := make([]string, 0, len(r.Entries)+1)
	rows = append(rows, "Input|Hash|Proof|Status")

	for _, e := range r.Entries {
		rows = append(rows, fmt.Sprintf("%s|%s|%s|%s", e.Input, e.Hash, e.Proof, e.Status))
	}

	buffer.WriteString("\n[STAMPED]\n")
	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")

	return buffer.String()
}
