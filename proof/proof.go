package proof

import (
	"bytes"
	"fmt"
	"net/url"
	"time"

	"github.com/tzstamp/tzstamp/chain"
)

// Proof threads an input hash through a sequence of operations.
// A proof is exactly one of *Unaffixed, *Affixed or *Unresolved and is
// immutable once built.
type Proof interface {
	// Hash returns the input hash
	Hash() []byte
	// Operations returns the operations in application order
	Operations() []Operation
	// Derivation returns the result of applying the operations to the input hash
	Derivation() []byte
	// Concat extends the proof with other, whose input hash must equal the derivation
	Concat(other Proof) (Proof, error)
	// Template returns the versioned JSON form of the proof
	Template() *Template

	isProof()
}

type base struct {
	hash       []byte
	operations []Operation
	derivation []byte
}

func newBase(hash []byte, ops []Operation) base {
	derivation := cloneBytes(hash)
	for _, op := range ops {
		derivation = op.Commit(derivation)
	}

	return base{
		hash:       cloneBytes(hash),
		operations: append([]Operation(nil), ops...),
		derivation: derivation,
	}
}

func (b *base) Hash() []byte { return cloneBytes(b.hash) }

func (b *base) Operations() []Operation {
	return append([]Operation(nil), b.operations...)
}

func (b *base) Derivation() []byte { return cloneBytes(b.derivation) }

func (b *base) template() *Template {
	ops := make([]*OperationTemplate, 0, len(b.operations))

	for _, op := range b.operations {
		if _, ok := op.(*Affix); ok {
			continue
		}

		ops = append(ops, op.Template())
	}

	return &Template{
		Version:    Version,
		Hash:       encodeHash(b.hash),
		Operations: ops,
	}
}

// Unaffixed is a proof with no chain anchor and no remote continuation
type Unaffixed struct {
	base
}

// Affixed is a proof whose derivation is the hash of a block on a network.
// It is terminal and cannot be extended.
type Affixed struct {
	base
	affix *Affix
}

// Unresolved is a proof whose continuation is published at a remote locator
type Unresolved struct {
	base
	remote string
}

// New builds a proof from an input hash and operations. A trailing affix
// operation yields an *Affixed proof, otherwise the proof is *Unaffixed.
func New(hash []byte, ops ...Operation) (Proof, error) {
	if err := checkAffixPlacement(ops); err != nil {
		return nil, err
	}

	if len(ops) > 0 {
		if affix, ok := ops[len(ops)-1].(*Affix); ok {
			return newAffixed(hash, ops, affix)
		}
	}

	return &Unaffixed{base: newBase(hash, ops)}, nil
}

// NewUnaffixed builds a proof with no chain anchor. Affix operations are rejected.
func NewUnaffixed(hash []byte, ops ...Operation) (*Unaffixed, error) {
	if err := rejectAffix(ops); err != nil {
		return nil, err
	}

	return &Unaffixed{base: newBase(hash, ops)}, nil
}

// NewAffixed builds a proof anchored to the network at the given timestamp.
// The network identifier must be a well-formed chain id.
func NewAffixed(hash []byte, network string, timestamp time.Time, ops ...Operation) (*Affixed, error) {
	if err := rejectAffix(ops); err != nil {
		return nil, err
	}

	affix := NewAffix(network, timestamp)

	all := make([]Operation, 0, len(ops)+1)
	all = append(all, ops...)
	all = append(all, affix)

	return newAffixed(hash, all, affix)
}

func newAffixed(hash []byte, ops []Operation, affix *Affix) (*Affixed, error) {
	if err := chain.ValidateNetwork(affix.network); err != nil {
		return nil, err
	}

	return &Affixed{
		base:  newBase(hash, ops),
		affix: affix,
	}, nil
}

// NewUnresolved builds a proof whose continuation is served at remote.
// The remote must be an absolute http or https URL.
func NewUnresolved(hash []byte, remote string, ops ...Operation) (*Unresolved, error) {
	if err := rejectAffix(ops); err != nil {
		return nil, err
	}

	if err := validateRemote(remote); err != nil {
		return nil, err
	}

	return &Unresolved{
		base:   newBase(hash, ops),
		remote: remote,
	}, nil
}

func (p *Unaffixed) isProof() {}

func (p *Unaffixed) Concat(other Proof) (Proof, error) {
	return concat(&p.base, other)
}

func (p *Unaffixed) Template() *Template {
	return p.template()
}

func (p *Affixed) isProof() {}

// Concat always fails, an affixed proof is terminal
func (p *Affixed) Concat(Proof) (Proof, error) {
	return nil, ErrAffixedTerminal
}

func (p *Affixed) Template() *Template {
	tmpl := p.template()
	tmpl.Network = p.affix.network
	tmpl.Timestamp = formatTimestamp(p.affix.timestamp)

	return tmpl
}

// Network returns the identifier of the network the proof is anchored to
func (p *Affixed) Network() string { return p.affix.network }

// Timestamp returns the claimed block timestamp
func (p *Affixed) Timestamp() time.Time { return p.affix.timestamp }

// Mainnet reports whether the proof is anchored to the production network
func (p *Affixed) Mainnet() bool { return chain.IsMainnet(p.affix.network) }

// BlockHash returns the encoded block hash, derived from the derivation
func (p *Affixed) BlockHash() string {
	return chain.EncodeBlockHash(p.derivation)
}

func (p *Unresolved) isProof() {}

func (p *Unresolved) Concat(other Proof) (Proof, error) {
	return concat(&p.base, other)
}

func (p *Unresolved) Template() *Template {
	tmpl := p.template()
	tmpl.Remote = p.remote

	return tmpl
}

// Remote returns the locator of the proof continuation
func (p *Unresolved) Remote() string { return p.remote }

// Concat extends a with b. It fails with ErrAffixedTerminal if a is affixed
// and with ErrMismatchedHash unless the derivation of a is the input hash of b.
// The result takes its state from b.
func Concat(a, b Proof) (Proof, error) {
	if isNil(a) {
		return nil, ErrNilProof
	}

	return a.Concat(b)
}

// isNil reports whether p is nil or a nil proof pointer
func isNil(p Proof) bool {
	switch p := p.(type) {
	case nil:
		return true
	case *Unaffixed:
		return p == nil
	case *Affixed:
		return p == nil
	case *Unresolved:
		return p == nil
	default:
		return false
	}
}

func concat(self *base, other Proof) (Proof, error) {
	if isNil(other) {
		return nil, ErrNilProof
	}

	if !bytes.Equal(self.derivation, other.Hash()) {
		return nil, fmt.Errorf(
			"%w: derivation %s does not match input hash %s",
			ErrMismatchedHash,
			encodeHash(self.derivation),
			encodeHash(other.Hash()),
		)
	}

	ops := make([]Operation, 0, len(self.operations)+len(other.Operations()))
	ops = append(ops, self.operations...)
	ops = append(ops, other.Operations()...)

	joined := base{
		hash:       cloneBytes(self.hash),
		operations: ops,
		derivation: other.Derivation(),
	}

	switch o := other.(type) {
	case *Affixed:
		return &Affixed{base: joined, affix: o.affix}, nil
	case *Unresolved:
		return &Unresolved{base: joined, remote: o.remote}, nil
	case *Unaffixed:
		return &Unaffixed{base: joined}, nil
	default:
		return nil, fmt.Errorf("unknown proof type %T", other)
	}
}

func checkAffixPlacement(ops []Operation) error {
	for i, op := range ops {
		if _, ok := op.(*Affix); ok && i != len(ops)-1 {
			return ErrMisplacedAffix
		}
	}

	return nil
}

func rejectAffix(ops []Operation) error {
	for _, op := range ops {
		if _, ok := op.(*Affix); ok {
			return ErrMisplacedAffix
		}
	}

	return nil
}

func validateRemote(remote string) error {
	u, err := url.Parse(remote)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidRemote, remote, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w %q: must be an absolute http(s) URL", ErrInvalidRemote, remote)
	}

	return nil
}
