package config

import (
	"fmt"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap/zapcore"

	"github.com/babylonlabs-io/account-control/metrics"
	"github.com/babylonlabs-io/account-control/util"
)

const (
	defaultLogLevel       = zapcore.InfoLevel
	defaultLogFormat      = "auto"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "acd.log"
	defaultConfigFileName = "acd.conf"
	defaultDataDirname    = "data"
)

var (
	//   C:\Users\<username>\AppData\Local\ on Windows
	//   ~/.acd on Linux
	//   ~/Users/<username>/Library/Application Support/Acd on MacOS
	DefaultAcdDir = btcutil.AppDataDir("acd", false)
)

// Config is the main config for the acd daemon
type Config struct {
	LogLevel  string `long:"loglevel" description:"Logging level for all subsystems" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"fatal"`
	LogFormat string `long:"logformat" description:"Log encoding" choice:"auto" choice:"console" choice:"json" choice:"logfmt"`

	DatabaseConfig *DBConfig `group:"dbconfig" namespace:"dbconfig"`

	BitcoinConfig *BTCConfig `group:"bitcoin" namespace:"bitcoin"`

	LedgerConfig *LedgerConfig `group:"ledger" namespace:"ledger"`

	OracleConfig *OracleConfig `group:"oracle" namespace:"oracle"`

	RedemptionConfig *RedemptionConfig `group:"redemption" namespace:"redemption"`

	WatchdogConfig *WatchdogConfig `group:"watchdog" namespace:"watchdog"`

	Roles *RolesConfig `group:"roles" namespace:"roles"`

	Metrics *metrics.Config `group:"metrics" namespace:"metrics"`
}

func DefaultConfigWithHome(homePath string) Config {
	btcCfg := DefaultBTCConfig()
	ledgerCfg := DefaultLedgerConfig()
	oracleCfg := DefaultOracleConfig()
	redemptionCfg := DefaultRedemptionConfig()
	watchdogCfg := DefaultWatchdogConfig()
	cfg := Config{
		LogLevel:         defaultLogLevel.String(),
		LogFormat:        defaultLogFormat,
		DatabaseConfig:   DefaultDBConfigWithHomePath(homePath),
		BitcoinConfig:    &btcCfg,
		LedgerConfig:     &ledgerCfg,
		OracleConfig:     &oracleCfg,
		RedemptionConfig: &redemptionCfg,
		WatchdogConfig:   &watchdogCfg,
		Roles:            &RolesConfig{},
		Metrics:          metrics.DefaultConfig(),
	}

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	return cfg
}

func DefaultConfig() Config {
	return DefaultConfigWithHome(DefaultAcdDir)
}

func CfgFile(homePath string) string {
	return filepath.Join(homePath, defaultConfigFileName)
}

func LogDir(homePath string) string {
	return filepath.Join(homePath, defaultLogDirname)
}

func LogFile(homePath string) string {
	return filepath.Join(LogDir(homePath), defaultLogFilename)
}

func DataDir(homePath string) string {
	return filepath.Join(homePath, defaultDataDirname)
}

// LoadConfig reads <homePath>/acd.conf on top of an empty config and
// validates the result. The file is expected to have been written by
// WriteConfig, so every option is present.
func LoadConfig(homePath string) (*Config, error) {
	cfgFile := CfgFile(homePath)
	if !util.FileExists(cfgFile) {
		return nil, fmt.Errorf("specified config file does "+
			"not exist in %s", cfgFile)
	}

	var cfg Config
	fileParser := flags.NewParser(&cfg, flags.Default)
	err := flags.NewIniParser(fileParser).ParseFile(cfgFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// WriteConfig writes cfg to <homePath>/acd.conf including defaults and
// option descriptions.
func WriteConfig(homePath string, cfg *Config) error {
	fileParser := flags.NewParser(cfg, flags.Default)

	return flags.NewIniParser(fileParser).WriteFile(CfgFile(homePath), flags.IniIncludeComments|flags.IniIncludeDefaults)
}

// Validate checks the given configuration to be sane. This makes sure no
// illegal values or a combination of values are set.
func (cfg *Config) Validate() error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if cfg.DatabaseConfig == nil {
		return fmt.Errorf("database config cannot be empty")
	}
	if err := cfg.DatabaseConfig.Validate(); err != nil {
		return fmt.Errorf("database configuration validation failed: %w", err)
	}

	if cfg.BitcoinConfig == nil {
		return fmt.Errorf("bitcoin config cannot be empty")
	}
	if err := cfg.BitcoinConfig.Validate(); err != nil {
		return fmt.Errorf("bitcoin configuration validation failed: %w", err)
	}

	if cfg.LedgerConfig == nil {
		return fmt.Errorf("ledger config cannot be empty")
	}
	if err := cfg.LedgerConfig.Validate(); err != nil {
		return fmt.Errorf("ledger configuration validation failed: %w", err)
	}

	if cfg.OracleConfig == nil {
		return fmt.Errorf("oracle config cannot be empty")
	}
	if err := cfg.OracleConfig.Validate(); err != nil {
		return fmt.Errorf("oracle configuration validation failed: %w", err)
	}

	if cfg.RedemptionConfig == nil {
		return fmt.Errorf("redemption config cannot be empty")
	}
	if err := cfg.RedemptionConfig.Validate(); err != nil {
		return fmt.Errorf("redemption configuration validation failed: %w", err)
	}

	if cfg.WatchdogConfig == nil {
		return fmt.Errorf("watchdog config cannot be empty")
	}
	if err := cfg.WatchdogConfig.Validate(); err != nil {
		return fmt.Errorf("watchdog configuration validation failed: %w", err)
	}

	if cfg.Roles == nil {
		cfg.Roles = &RolesConfig{}
	}

	if cfg.Metrics == nil {
		return fmt.Errorf("metrics configuration cannot be empty")
	}
	if err := cfg.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics configuration validation failed: %w", err)
	}

	return nil
}
