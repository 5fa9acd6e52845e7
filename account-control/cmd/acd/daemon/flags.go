package daemon

const (
	HomeFlag = "home"

	forceFlag       = "force"
	logLevelFlag    = "log-level"
	metricsPortFlag = "metrics-port"
	relayModeFlag   = "relay-mode"
	keyHexFlag      = "key-hex"
	proofHashFlag   = "proof-hash"
)
