package addrcodec_test

import (
	"encoding/hex"
	"math/rand"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/account-control/bitcoin"
	"github.com/babylonlabs-io/account-control/bitcoin/addrcodec"
	"github.com/babylonlabs-io/account-control/testutil"
)

func TestDecodeGenesisAddress(t *testing.T) {
	t.Parallel()

	codec := addrcodec.NewCodec(&chaincfg.MainNetParams)

	decoded, err := codec.Decode("1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	require.NoError(t, err)
	require.Equal(t, bitcoin.ScriptP2PKH, decoded.Type)
	require.Equal(t, "62e907b15cbf27d5425399ebf6f0fb50ebb88f18", hex.EncodeToString(decoded.Hash))

	script, err := decoded.PkScript()
	require.NoError(t, err)
	require.True(t, decoded.Matches(script))
}

func encodeAll(t *testing.T, r *rand.Rand, params *chaincfg.Params) map[bitcoin.ScriptType]struct {
	addr string
	hash []byte
} {
	t.Helper()

	h20 := testutil.GenRandomByteArray(r, 20)
	h32 := testutil.GenRandomByteArray(r, 32)

	pkh, err := btcutil.NewAddressPubKeyHash(h20, params)
	require.NoError(t, err)
	sh, err := btcutil.NewAddressScriptHashFromHash(h20, params)
	require.NoError(t, err)
	wpkh, err := btcutil.NewAddressWitnessPubKeyHash(h20, params)
	require.NoError(t, err)
	wsh, err := btcutil.NewAddressWitnessScriptHash(h32, params)
	require.NoError(t, err)

	return map[bitcoin.ScriptType]struct {
		addr string
		hash []byte
	}{
		bitcoin.ScriptP2PKH:  {pkh.EncodeAddress(), h20},
		bitcoin.ScriptP2SH:   {sh.EncodeAddress(), h20},
		bitcoin.ScriptP2WPKH: {wpkh.EncodeAddress(), h20},
		bitcoin.ScriptP2WSH:  {wsh.EncodeAddress(), h32},
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	networks := []*chaincfg.Params{
		&chaincfg.MainNetParams,
		&chaincfg.TestNet3Params,
		&chaincfg.RegressionNetParams,
	}

	r := rand.New(rand.NewSource(1))
	for _, params := range networks {
		params := params
		addrs := encodeAll(t, r, params)

		t.Run(params.Name, func(t *testing.T) {
			t.Parallel()

			codec := addrcodec.NewCodec(params)
			for scriptType, a := range addrs {
				decoded, err := codec.Decode(a.addr)
				require.NoError(t, err, a.addr)
				require.Equal(t, scriptType, decoded.Type, a.addr)
				require.Equal(t, a.hash, decoded.Hash, a.addr)
				require.True(t, codec.Validate(a.addr))
			}
		})
	}
}

func TestDecodeUppercaseBech32(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(2))
	addrs := encodeAll(t, r, &chaincfg.MainNetParams)
	upper := strings.ToUpper(addrs[bitcoin.ScriptP2WPKH].addr)

	decoded, err := addrcodec.NewCodec(&chaincfg.MainNetParams).Decode(upper)
	require.NoError(t, err)
	require.Equal(t, addrs[bitcoin.ScriptP2WPKH].hash, decoded.Hash)
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(3))
	mainnet := encodeAll(t, r, &chaincfg.MainNetParams)
	testnet := encodeAll(t, r, &chaincfg.TestNet3Params)

	taproot, err := btcutil.NewAddressTaproot(testutil.GenRandomByteArray(r, 32), &chaincfg.MainNetParams)
	require.NoError(t, err)

	p2pkh := mainnet[bitcoin.ScriptP2PKH].addr
	badChecksum := p2pkh[:len(p2pkh)-1] + string(flipBase58(p2pkh[len(p2pkh)-1]))

	tcs := []struct {
		name        string
		address     string
		expectedErr error
	}{
		{"too short", "1abc", addrcodec.ErrInvalidAddressFormat},
		{"too long", "bc1" + strings.Repeat("q", 80), addrcodec.ErrInvalidAddressFormat},
		{"testnet legacy on mainnet", testnet[bitcoin.ScriptP2PKH].addr, addrcodec.ErrInvalidAddressFormat},
		{"testnet segwit on mainnet", testnet[bitcoin.ScriptP2WPKH].addr, addrcodec.ErrInvalidAddressFormat},
		{"bad base58 checksum", badChecksum, addrcodec.ErrInvalidAddressFormat},
		{"taproot", taproot.EncodeAddress(), addrcodec.ErrUnsupportedScriptType},
		{"unknown prefix", "xpub661MyMwAqRbcF", addrcodec.ErrInvalidAddressFormat},
	}

	codec := addrcodec.NewCodec(&chaincfg.MainNetParams)
	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := codec.Decode(tc.address)
			require.ErrorIs(t, err, tc.expectedErr)
			require.False(t, codec.Validate(tc.address))
		})
	}
}

func flipBase58(c byte) byte {
	if c == '2' {
		return '3'
	}
	return '2'
}
