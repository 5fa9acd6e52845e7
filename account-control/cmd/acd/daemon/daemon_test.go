package daemon_test

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/account-control/account-control/cmd/acd/daemon"
	"github.com/babylonlabs-io/account-control/account-control/config"
	"github.com/babylonlabs-io/account-control/account-control/oracle"
	"github.com/babylonlabs-io/account-control/account-control/store"
	"github.com/babylonlabs-io/account-control/types"
)

func newRootCmd(home string) (*cobra.Command, *bytes.Buffer) {
	root := &cobra.Command{Use: "acd"}
	root.PersistentFlags().String(daemon.HomeFlag, home, "The application home directory")
	daemon.AddDaemonCommands(root)

	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(out)

	return root, out
}

func execute(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()

	root, out := newRootCmd(home)
	root.SetArgs(args)
	err := root.Execute()

	return out.String(), err
}

func TestInitCmd(t *testing.T) {
	t.Parallel()

	home := filepath.Join(t.TempDir(), "acd")

	_, err := execute(t, home, "init")
	require.NoError(t, err)

	cfg, err := config.LoadConfig(home)
	require.NoError(t, err)
	require.Equal(t, config.RelayModeStatic, cfg.BitcoinConfig.RelayMode)
	require.DirExists(t, config.LogDir(home))

	_, err = execute(t, home, "init")
	require.ErrorContains(t, err, "already exists")

	_, err = execute(t, home, "init", "--force")
	require.NoError(t, err)
}

func TestReservesCmd(t *testing.T) {
	t.Parallel()

	home := filepath.Join(t.TempDir(), "acd")
	_, err := execute(t, home, "init")
	require.NoError(t, err)

	cfg, err := config.LoadConfig(home)
	require.NoError(t, err)

	db, err := cfg.DatabaseConfig.GetDBBackend()
	require.NoError(t, err)
	rs, err := store.NewReserveStore(db)
	require.NoError(t, err)
	require.NoError(t, rs.CreateReserve(&types.Reserve{
		ID:         "qc-1",
		MintingCap: 1000,
		Status:     types.ReserveStatusActive,
	}))
	require.NoError(t, db.Close())

	out, err := execute(t, home, "reserves")
	require.NoError(t, err)

	var resp struct {
		Reserves []struct {
			ID         string `json:"id"`
			Status     string `json:"status"`
			MintingCap uint64 `json:"minting_cap"`
		} `json:"reserves"`
		TotalMinted uint64 `json:"total_minted"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Reserves, 1)
	require.Equal(t, "qc-1", resp.Reserves[0].ID)
	require.Equal(t, "ACTIVE", resp.Reserves[0].Status)
	require.Equal(t, uint64(1000), resp.Reserves[0].MintingCap)
	require.Zero(t, resp.TotalMinted)
}

func TestStartCmdRejectsBadOverride(t *testing.T) {
	t.Parallel()

	home := filepath.Join(t.TempDir(), "acd")
	_, err := execute(t, home, "init")
	require.NoError(t, err)

	_, err = execute(t, home, "start", "--relay-mode", "electrum")
	require.ErrorContains(t, err, "invalid configuration")
}

func TestSignAttestationCmd(t *testing.T) {
	t.Parallel()

	sk, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	out, err := execute(t, t.TempDir(), "sign-attestation", "qc-1", "150000", "--key-hex", hex.EncodeToString(sk.Serialize()))
	require.NoError(t, err)

	var sa oracle.SignedAttestation
	require.NoError(t, json.Unmarshal([]byte(out), &sa))
	require.Equal(t, "qc-1", sa.Reserve)
	require.Equal(t, uint64(150000), sa.Amount)

	attester, err := sa.Verify()
	require.NoError(t, err)
	require.Equal(t, oracle.AttesterID(sk.PubKey()), attester)

	_, err = execute(t, t.TempDir(), "sign-attestation", "qc-1", "many", "--key-hex", hex.EncodeToString(sk.Serialize()))
	require.Error(t, err)
}

func TestFillConfigFromFlags(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfigWithHome(t.TempDir())

	flagSet := pflag.NewFlagSet("start", pflag.ContinueOnError)
	flagSet.String("log-level", "", "")
	flagSet.Int("metrics-port", 0, "")
	flagSet.String("relay-mode", "", "")

	// unset flags leave the config alone
	require.NoError(t, daemon.FillConfigFromFlags(&cfg, flagSet))
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, config.RelayModeStatic, cfg.BitcoinConfig.RelayMode)

	require.NoError(t, flagSet.Parse([]string{"--log-level", "debug", "--metrics-port", "9100"}))
	require.NoError(t, daemon.FillConfigFromFlags(&cfg, flagSet))
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 9100, cfg.Metrics.Port)
	require.Equal(t, config.RelayModeStatic, cfg.BitcoinConfig.RelayMode)
}
