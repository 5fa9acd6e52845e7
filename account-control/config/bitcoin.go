package config

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/babylonlabs-io/account-control/spv/relay"
)

const (
	RelayModeStatic   = "static"
	RelayModeBitcoind = "bitcoind"

	defaultBitcoinNetwork   = "regtest"
	defaultDifficultyFactor = 6
	defaultRPCHost          = "127.0.0.1:18443"
)

type BTCConfig struct {
	Network          string `long:"network" description:"The bitcoin network the reserves live on" choice:"mainnet" choice:"testnet" choice:"signet" choice:"regtest"`
	DifficultyFactor uint64 `long:"difficultyfactor" description:"The number of epoch difficulties of work a proof's header chain must accumulate"`

	RelayMode string `long:"relaymode" description:"Where epoch difficulties are read from" choice:"static" choice:"bitcoind"`

	// only used in static relay mode
	StaticCurrentDifficulty  uint64 `long:"staticcurrentdifficulty" description:"The current epoch difficulty reported by the static relay"`
	StaticPreviousDifficulty uint64 `long:"staticpreviousdifficulty" description:"The previous epoch difficulty reported by the static relay"`

	RPCHost    string `long:"rpchost" description:"The bitcoind RPC endpoint"`
	RPCUser    string `long:"rpcuser" description:"Username for bitcoind RPC"`
	RPCPass    string `long:"rpcpass" description:"Password for bitcoind RPC"`
	DisableTLS bool   `long:"disabletls" description:"Connect to bitcoind without TLS"`
}

func DefaultBTCConfig() BTCConfig {
	return BTCConfig{
		Network:                  defaultBitcoinNetwork,
		DifficultyFactor:         defaultDifficultyFactor,
		RelayMode:                RelayModeStatic,
		StaticCurrentDifficulty:  1,
		StaticPreviousDifficulty: 1,
		RPCHost:                  defaultRPCHost,
		DisableTLS:               true,
	}
}

func (cfg *BTCConfig) NetParams() (*chaincfg.Params, error) {
	switch cfg.Network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unsupported bitcoin network: %s", cfg.Network)
	}
}

func (cfg *BTCConfig) BitcoindConfig() *relay.BitcoindConfig {
	return &relay.BitcoindConfig{
		RPCHost:    cfg.RPCHost,
		RPCUser:    cfg.RPCUser,
		RPCPass:    cfg.RPCPass,
		DisableTLS: cfg.DisableTLS,
	}
}

func (cfg *BTCConfig) Validate() error {
	if _, err := cfg.NetParams(); err != nil {
		return err
	}

	if cfg.DifficultyFactor == 0 {
		return fmt.Errorf("difficulty factor must be positive")
	}

	switch cfg.RelayMode {
	case RelayModeStatic:
		if cfg.StaticCurrentDifficulty == 0 || cfg.StaticPreviousDifficulty == 0 {
			return fmt.Errorf("static relay difficulties must be positive")
		}
	case RelayModeBitcoind:
		if cfg.RPCHost == "" {
			return fmt.Errorf("bitcoind rpc host cannot be empty")
		}
	default:
		return fmt.Errorf("unsupported relay mode: %s", cfg.RelayMode)
	}

	return nil
}
