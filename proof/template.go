package proof

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tzstamp/tzstamp/helper/hex"
)

// Version is the only supported proof template version
const Version = 1

// Template is the versioned JSON form of a proof. Network and Timestamp are
// set for affixed proofs, Remote for unresolved proofs.
type Template struct {
	Version    int                  `json:"version"`
	Hash       string               `json:"hash"`
	Operations []*OperationTemplate `json:"operations"`
	Network    string               `json:"network,omitempty"`
	Timestamp  string               `json:"timestamp,omitempty"`
	Remote     string               `json:"remote,omitempty"`
}

// FromTemplate builds a proof from its template, validating it the same way
// direct construction does
func FromTemplate(tmpl *Template) (Proof, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("%w: missing template", ErrInvalidTemplate)
	}

	switch {
	case tmpl.Version == 0:
		return nil, fmt.Errorf("%w: missing version", ErrInvalidTemplate)
	case tmpl.Version != Version:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, tmpl.Version)
	}

	hash, err := decodeField("hash", tmpl.Hash)
	if err != nil {
		return nil, err
	}

	if tmpl.Operations == nil {
		return nil, fmt.Errorf("%w: missing operations", ErrInvalidTemplate)
	}

	ops := make([]Operation, 0, len(tmpl.Operations))

	for i, opTmpl := range tmpl.Operations {
		op, err := ParseOperation(opTmpl)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}

		if _, ok := op.(*Affix); ok {
			return nil, fmt.Errorf("%w: operation %d: affix is expressed by network and timestamp", ErrInvalidTemplate, i)
		}

		ops = append(ops, op)
	}

	affixed := tmpl.Network != "" || tmpl.Timestamp != ""

	switch {
	case affixed && tmpl.Remote != "":
		return nil, fmt.Errorf("%w: proof cannot be both affixed and unresolved", ErrInvalidTemplate)

	case affixed:
		if tmpl.Network == "" {
			return nil, fmt.Errorf("%w: affixed proof requires a network", ErrInvalidTemplate)
		}

		timestamp, err := parseTimestamp(tmpl.Timestamp)
		if err != nil {
			return nil, err
		}

		return NewAffixed(hash, tmpl.Network, timestamp, ops...)

	case tmpl.Remote != "":
		return NewUnresolved(hash, tmpl.Remote, ops...)

	default:
		return NewUnaffixed(hash, ops...)
	}
}

// Parse decodes a JSON proof template. Unknown fields are rejected.
func Parse(data []byte) (Proof, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var tmpl Template
	if err := decoder.Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after template", ErrInvalidTemplate)
	}

	return FromTemplate(&tmpl)
}

// Marshal encodes the proof as an indented JSON template
func Marshal(p Proof) ([]byte, error) {
	return json.MarshalIndent(p.Template(), "", "  ")
}

// Equal reports whether two proofs have the same state, input hash,
// operations and state fields
func Equal(a, b Proof) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	rawA, err := json.Marshal(a.Template())
	if err != nil {
		return false
	}

	rawB, err := json.Marshal(b.Template())
	if err != nil {
		return false
	}

	return bytes.Equal(rawA, rawB)
}

func encodeHash(b []byte) string {
	return hex.EncodeToString(b)
}
