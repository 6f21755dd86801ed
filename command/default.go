package command

const (
	JSONOutputFlag   = "json"
	LogLevelFlag     = "log-level"
	DefaultLogLevel  = "INFO"
	DefaultServerURL = "https://api.tzstamp.io"
	DefaultRPCURL    = "https://mainnet.tezos.marigold.dev"
	ProofFileSuffix  = ".proof.json"
)
