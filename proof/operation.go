package proof

import (
	"fmt"
	"strings"
	"time"

	"github.com/tzstamp/tzstamp/chain"
	"github.com/tzstamp/tzstamp/crypto"
	"github.com/tzstamp/tzstamp/helper/hex"
)

const (
	joinType    = "join"
	blake2bType = "blake2b"
	sha256Type  = "sha256"
	affixType   = "affix"
)

// Operation is a pure byte transform applied while deriving a proof.
// The set of operations is closed: Join, Blake2b, SHA256 and Affix.
type Operation interface {
	// Commit applies the operation to input. The input is not modified.
	Commit(input []byte) []byte
	String() string
	Template() *OperationTemplate

	isOperation()
}

// OperationTemplate is the JSON form of an operation, keyed by Type
type OperationTemplate struct {
	Type      string `json:"type"`
	Prepend   string `json:"prepend,omitempty"`
	Append    string `json:"append,omitempty"`
	Length    *int   `json:"length,omitempty"`
	Key       string `json:"key,omitempty"`
	Network   string `json:"network,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Join surrounds its input with fixed prepend and append bytes
type Join struct {
	prepend []byte
	append  []byte
}

// NewJoin creates a join operation. Either side may be empty.
func NewJoin(prepend, appendBytes []byte) *Join {
	return &Join{
		prepend: cloneBytes(prepend),
		append:  cloneBytes(appendBytes),
	}
}

func (j *Join) Prepend() []byte { return cloneBytes(j.prepend) }

func (j *Join) Append() []byte { return cloneBytes(j.append) }

func (j *Join) Commit(input []byte) []byte {
	out := make([]byte, 0, len(j.prepend)+len(input)+len(j.append))
	out = append(out, j.prepend...)
	out = append(out, input...)

	return append(out, j.append...)
}

func (j *Join) String() string {
	parts := make([]string, 0, 2)

	if len(j.prepend) > 0 {
		parts = append(parts, "Prepend "+hex.EncodeToHex(j.prepend))
	}

	if len(j.append) > 0 {
		parts = append(parts, "Append "+hex.EncodeToHex(j.append))
	}

	if len(parts) == 0 {
		return "Join nothing"
	}

	return strings.Join(parts, ", ")
}

func (j *Join) Template() *OperationTemplate {
	return &OperationTemplate{
		Type:    joinType,
		Prepend: hex.EncodeToString(j.prepend),
		Append:  hex.EncodeToString(j.append),
	}
}

func (j *Join) isOperation() {}

// Blake2b hashes its input with BLAKE2b using a digest length and optional key
type Blake2b struct {
	length int
	key    []byte
}

// NewBlake2b creates a BLAKE2b operation. The length must be within [0, 64]
// and the key must not exceed 64 bytes.
func NewBlake2b(length int, key []byte) (*Blake2b, error) {
	if err := crypto.ValidateBlake2bParams(length, key); err != nil {
		return nil, err
	}

	return &Blake2b{
		length: length,
		key:    cloneBytes(key),
	}, nil
}

// NewBlake2b256 creates an unkeyed BLAKE2b operation with a 32-byte digest
func NewBlake2b256() *Blake2b {
	return &Blake2b{length: crypto.DefaultDigestLength}
}

func (b *Blake2b) Length() int { return b.length }

func (b *Blake2b) Key() []byte { return cloneBytes(b.key) }

func (b *Blake2b) Commit(input []byte) []byte {
	// parameters are checked on construction
	out, _ := crypto.Blake2b(input, b.key, b.length)

	return out
}

func (b *Blake2b) String() string {
	str := fmt.Sprintf("BLAKE2b hash, %d-byte digest", b.length)
	if len(b.key) > 0 {
		str += " with key " + hex.EncodeToHex(b.key)
	}

	return str
}

func (b *Blake2b) Template() *OperationTemplate {
	tmpl := &OperationTemplate{
		Type: blake2bType,
		Key:  hex.EncodeToString(b.key),
	}

	if b.length != crypto.DefaultDigestLength {
		length := b.length
		tmpl.Length = &length
	}

	return tmpl
}

func (b *Blake2b) isOperation() {}

// SHA256 hashes its input with SHA-256
type SHA256 struct{}

func NewSHA256() *SHA256 {
	return &SHA256{}
}

func (s *SHA256) Commit(input []byte) []byte {
	return crypto.SHA256(input)
}

func (s *SHA256) String() string {
	return "SHA-256 hash"
}

func (s *SHA256) Template() *OperationTemplate {
	return &OperationTemplate{Type: sha256Type}
}

func (s *SHA256) isOperation() {}

// Affix anchors a derivation to a block on a network at a timestamp.
// It leaves the bytes untouched and may only be the last operation of a proof.
type Affix struct {
	network   string
	timestamp time.Time
}

// NewAffix creates an affix operation. The network is validated when the
// operation is used to build an affixed proof.
func NewAffix(network string, timestamp time.Time) *Affix {
	return &Affix{
		network:   network,
		timestamp: timestamp.UTC(),
	}
}

func (a *Affix) Network() string { return a.network }

func (a *Affix) Timestamp() time.Time { return a.timestamp }

func (a *Affix) Commit(input []byte) []byte {
	return cloneBytes(input)
}

func (a *Affix) String() string {
	return fmt.Sprintf("Affix to %s at %s", chain.NetworkName(a.network), formatTimestamp(a.timestamp))
}

func (a *Affix) Template() *OperationTemplate {
	return &OperationTemplate{
		Type:      affixType,
		Network:   a.network,
		Timestamp: formatTimestamp(a.timestamp),
	}
}

func (a *Affix) isOperation() {}

// ParseOperation builds an operation from its template
func ParseOperation(tmpl *OperationTemplate) (Operation, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("%w: missing operation", ErrInvalidTemplate)
	}

	switch tmpl.Type {
	case joinType:
		if tmpl.Length != nil || tmpl.Key != "" || tmpl.Network != "" || tmpl.Timestamp != "" {
			return nil, fmt.Errorf("%w: unexpected fields in join operation", ErrInvalidTemplate)
		}

		prepend, err := decodeField("prepend", tmpl.Prepend)
		if err != nil {
			return nil, err
		}

		appendBytes, err := decodeField("append", tmpl.Append)
		if err != nil {
			return nil, err
		}

		return NewJoin(prepend, appendBytes), nil

	case blake2bType:
		if tmpl.Prepend != "" || tmpl.Append != "" || tmpl.Network != "" || tmpl.Timestamp != "" {
			return nil, fmt.Errorf("%w: unexpected fields in blake2b operation", ErrInvalidTemplate)
		}

		key, err := decodeField("key", tmpl.Key)
		if err != nil {
			return nil, err
		}

		length := crypto.DefaultDigestLength
		if tmpl.Length != nil {
			length = *tmpl.Length
		}

		op, err := NewBlake2b(length, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}

		return op, nil

	case sha256Type:
		if tmpl.Prepend != "" || tmpl.Append != "" || tmpl.Length != nil ||
			tmpl.Key != "" || tmpl.Network != "" || tmpl.Timestamp != "" {
			return nil, fmt.Errorf("%w: unexpected fields in sha256 operation", ErrInvalidTemplate)
		}

		return NewSHA256(), nil

	case affixType:
		if tmpl.Prepend != "" || tmpl.Append != "" || tmpl.Length != nil || tmpl.Key != "" {
			return nil, fmt.Errorf("%w: unexpected fields in affix operation", ErrInvalidTemplate)
		}

		if tmpl.Network == "" {
			return nil, fmt.Errorf("%w: affix operation requires a network", ErrInvalidTemplate)
		}

		timestamp, err := parseTimestamp(tmpl.Timestamp)
		if err != nil {
			return nil, err
		}

		return NewAffix(tmpl.Network, timestamp), nil

	case "":
		return nil, fmt.Errorf("%w: missing operation type", ErrInvalidTemplate)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperation, tmpl.Type)
	}
}

func decodeField(name, value string) ([]byte, error) {
	buf, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a hex string: %v", ErrInvalidTemplate, name, err)
	}

	return buf, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: missing timestamp", ErrInvalidTemplate)
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp: %v", ErrInvalidTemplate, err)
	}

	return t.UTC(), nil
}

// cloneBytes copies b, mapping empty slices to nil
func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}

	out := make([]byte, len(b))
	copy(out, b)

	return out
}
