package proof

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tzstamp/tzstamp/chain"
)

func TestTemplate_WireFormat(t *testing.T) {
	t.Parallel()

	p, err := NewAffixed([]byte{0xab}, chain.MainnetID, testTimestamp, NewJoin(nil, []byte{0x01}), NewBlake2b256())
	require.NoError(t, err)

	raw, err := json.Marshal(p.Template())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"version": 1,
		"hash": "ab",
		"operations": [
			{"type": "join", "append": "01"},
			{"type": "blake2b"}
		],
		"network": "NetXdQprcVkpaWU",
		"timestamp": "2021-06-01T12:00:00Z"
	}`, string(raw))
}

func TestParse_Dispatch(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte(`{"version":1,"hash":"00","operations":[{"type":"sha256"}]}`))
	require.NoError(t, err)
	assert.IsType(t, &Unaffixed{}, p)

	p, err = Parse([]byte(`{"version":1,"hash":"00","operations":[],"remote":"https://a.example/proof/00"}`))
	require.NoError(t, err)
	assert.IsType(t, &Unresolved{}, p)

	p, err = Parse([]byte(`{"version":1,"hash":"00","operations":[],"network":"NetXdQprcVkpaWU","timestamp":"2021-06-01T12:00:00Z"}`))
	require.NoError(t, err)
	assert.IsType(t, &Affixed{}, p)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		err  error
	}{
		{"not json", `hello`, ErrInvalidTemplate},
		{"missing version", `{"hash":"00","operations":[]}`, ErrInvalidTemplate},
		{"future version", `{"version":2,"hash":"00","operations":[]}`, ErrUnsupportedVersion},
		{"bad hash", `{"version":1,"hash":"0g","operations":[]}`, ErrInvalidTemplate},
		{"missing operations", `{"version":1,"hash":"00"}`, ErrInvalidTemplate},
		{"unknown field", `{"version":1,"hash":"00","operations":[],"extra":true}`, ErrInvalidTemplate},
		{"unknown operation", `{"version":1,"hash":"00","operations":[{"type":"ripemd160"}]}`, ErrUnsupportedOperation},
		{"affix operation", `{"version":1,"hash":"00","operations":[{"type":"affix","network":"NetXdQprcVkpaWU","timestamp":"2021-06-01T12:00:00Z"}]}`, ErrInvalidTemplate},
		{"network only", `{"version":1,"hash":"00","operations":[],"network":"NetXdQprcVkpaWU"}`, ErrInvalidTemplate},
		{"timestamp only", `{"version":1,"hash":"00","operations":[],"timestamp":"2021-06-01T12:00:00Z"}`, ErrInvalidTemplate},
		{"ambiguous state", `{"version":1,"hash":"00","operations":[],"network":"NetXdQprcVkpaWU","timestamp":"2021-06-01T12:00:00Z","remote":"https://a.example"}`, ErrInvalidTemplate},
		{"invalid network", `{"version":1,"hash":"00","operations":[],"network":"NetXbogus","timestamp":"2021-06-01T12:00:00Z"}`, chain.ErrInvalidNetwork},
		{"invalid remote", `{"version":1,"hash":"00","operations":[],"remote":"localhost"}`, ErrInvalidRemote},
		{"trailing data", `{"version":1,"hash":"00","operations":[]} {}`, ErrInvalidTemplate},
		{"trailing brace", `{"version":1,"hash":"00","operations":[]}}`, ErrInvalidTemplate},
		{"trailing bracket", `{"version":1,"hash":"00","operations":[]}]`, ErrInvalidTemplate},
		{"trailing word", `{"version":1,"hash":"00","operations":[]} xyz`, ErrInvalidTemplate},
	}

	for _, c := range cases {
		_, err := Parse([]byte(c.raw))
		require.ErrorIs(t, err, c.err, c.name)
	}

	// surrounding whitespace is not trailing data
	_, err := Parse([]byte("  {\"version\":1,\"hash\":\"00\",\"operations\":[]}\n\t "))
	require.NoError(t, err)
}

func drawOperation(t *rapid.T) Operation {
	bytesGen := rapid.SliceOfN(rapid.Byte(), 0, 16)

	switch rapid.IntRange(0, 2).Draw(t, "kind") {
	case 0:
		return NewJoin(bytesGen.Draw(t, "prepend"), bytesGen.Draw(t, "append"))
	case 1:
		op, err := NewBlake2b(
			rapid.IntRange(0, 64).Draw(t, "length"),
			rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "key"),
		)
		if err != nil {
			t.Fatalf("blake2b: %v", err)
		}

		return op
	default:
		return NewSHA256()
	}
}

func drawProof(t *rapid.T) Proof {
	hash := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(t, "hash")

	ops := make([]Operation, rapid.IntRange(0, 8).Draw(t, "ops"))
	for i := range ops {
		ops[i] = drawOperation(t)
	}

	var (
		p   Proof
		err error
	)

	switch rapid.IntRange(0, 2).Draw(t, "state") {
	case 0:
		p, err = NewUnaffixed(hash, ops...)
	case 1:
		network := rapid.SampledFrom([]string{chain.MainnetID, chain.GhostnetID}).Draw(t, "network")
		ts := time.Unix(rapid.Int64Range(0, 4_000_000_000).Draw(t, "ts"), rapid.Int64Range(0, 999_999_999).Draw(t, "ns"))
		p, err = NewAffixed(hash, network, ts, ops...)
	default:
		p, err = NewUnresolved(hash, "https://tzstamp.example/proof/"+rapid.StringMatching(`[0-9a-f]{8}`).Draw(t, "id"), ops...)
	}

	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	return p
}

func TestProof_TemplateRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		p := drawProof(t)

		raw, err := Marshal(p)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		parsed, err := Parse(raw)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}

		if !Equal(p, parsed) {
			t.Fatalf("round trip mismatch:\n%s", raw)
		}

		if string(parsed.Derivation()) != string(p.Derivation()) {
			t.Fatalf("derivation changed")
		}

		for _, op := range p.Operations() {
			back, err := ParseOperation(op.Template())
			if err != nil {
				t.Fatalf("operation %s: %v", op, err)
			}

			if back.String() != op.String() {
				t.Fatalf("operation %s parsed as %s", op, back)
			}
		}
	})
}
