package chain

// Encoding describes a checksummed, prefixed base58 encoding of a fixed-length payload
type Encoding struct {
	Name          string
	Prefix        []byte
	PayloadLength int
}

var (
	// ChainIDEncoding is the "Net..." network identifier encoding
	ChainIDEncoding = Encoding{
		Name:          "chain id",
		Prefix:        []byte{87, 82, 0},
		PayloadLength: 4,
	}

	// BlockHashEncoding is the "B..." block hash encoding
	BlockHashEncoding = Encoding{
		Name:          "block hash",
		Prefix:        []byte{1, 52},
		PayloadLength: 32,
	}

	// OperationsHashEncoding is the "LLo..." operation list list hash encoding
	OperationsHashEncoding = Encoding{
		Name:          "operations hash",
		Prefix:        []byte{29, 159, 109},
		PayloadLength: 32,
	}
)

const (
	// MainnetID is the production network identifier
	MainnetID = "NetXdQprcVkpaWU"

	// GhostnetID is the long-running test network identifier
	GhostnetID = "NetXnHfVqm9iesp"
)

// KnownNetworks maps well-known network identifiers to their names
var KnownNetworks = map[string]string{
	MainnetID:  "mainnet",
	GhostnetID: "ghostnet",
}
